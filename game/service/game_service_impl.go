package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/wricardo/resource-rush/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   ScoreBoard
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. scores may be nil,
// in which case finished runs are not recorded.
func NewGameService(sessions SessionManager, configs ConfigManager, scores ScoreBoard) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		scores:   scores,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(session), nil
}

// getConfigID looks up the config id of a display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		RunID:          sess.RunID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// getSession fetches a session and marks it accessed. Marking writes to
// the session, so callers must hold the write lock.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	return nil
}

// Move executes a single directional move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	dir, ok := engine.ParseDirection(direction)
	if !ok {
		return nil, fmt.Errorf("%w: %q (use up, down, left or right)", ErrInvalidDirection, direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Engine.AttemptMove(dir)
	return s.finishMove(ctx, sess, string(dir), outcome), nil
}

// MoveTo moves the player onto an adjacent cell
func (s *gameServiceImpl) MoveTo(ctx context.Context, sessionID string, x, y int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Engine.ApplyMove(x, y)
	return s.finishMove(ctx, sess, fmt.Sprintf("to (%d,%d)", x, y), outcome), nil
}

// finishMove records the outcome, persists the session and builds the result
func (s *gameServiceImpl) finishMove(ctx context.Context, sess *Session, label string, outcome engine.MoveOutcome) *MoveResult {
	events := moveEvents(label, outcome)
	s.recordRun(ctx, sess, outcome)
	s.persist(sess.ID, "move")

	state := sess.Engine.Snapshot()
	message := state.Message
	if !outcome.Accepted {
		message = events[0].Message
	}

	return &MoveResult{
		Success:   outcome.Accepted,
		Outcome:   outcome,
		GameState: state,
		Message:   message,
		Events:    events,
	}
}

// BulkMove executes moves in order. It stops at the first rejected move
// and whenever a prompt is left waiting for confirmation.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	dirs := make([]engine.Direction, 0, len(moves))
	for i, move := range moves {
		dir, ok := engine.ParseDirection(move)
		if !ok {
			return nil, fmt.Errorf("%w: move %d is %q", ErrInvalidDirection, i+1, move)
		}
		dirs = append(dirs, dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	start := sess.Engine.Snapshot()
	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
		StartPos:       start.PlayerPos,
		StartMoves:     start.Moves,
	}

	// Limit moves to prevent abuse
	if len(dirs) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		dirs = dirs[:engine.MaxBulkMoves]
	}

	for i, dir := range dirs {
		outcome := sess.Engine.AttemptMove(dir)
		result.Events = append(result.Events, moveEvents(string(dir), outcome)...)

		if !outcome.Accepted {
			result.Success = false
			result.StopReasonCode = string(outcome.Rejected)
			result.StoppedReason = fmt.Sprintf("move %d (%s) rejected: %s", i+1, dir, rejectText(outcome.Rejected))
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		if outcome.ResourceCollected {
			result.ResourcesCollected++
		}
		result.Steps = append(result.Steps, StepInfo{
			Idx:         i + 1,
			Dir:         string(dir),
			From:        outcome.From,
			To:          outcome.To,
			MovesBefore: outcome.MovesBefore,
			MovesAfter:  outcome.MovesAfter,
			Penalty:     outcome.PenaltyTriggered,
			Resource:    outcome.ResourceCollected,
			Transition:  outcome.Transition,
		})
		s.recordRun(ctx, sess, outcome)

		if sess.Engine.IsBusy() {
			code := string(outcome.Transition)
			if code == "" {
				code = string(engine.PromptPenalty)
			}
			result.StopReasonCode = code
			result.StoppedReason = fmt.Sprintf("move %d (%s) needs confirmation: %s", i+1, dir, code)
			if i+1 < len(dirs) {
				result.StoppedOnMove = i + 1
			}
			break
		}
	}

	end := sess.Engine.Snapshot()
	result.GameState = end
	result.EndPos = end.PlayerPos
	result.EndMoves = end.Moves

	s.persist(sess.ID, "bulk move")
	return result, nil
}

// Confirm acknowledges the oldest pending prompt of a session
func (s *gameServiceImpl) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	prompt, err := sess.Engine.ConfirmAndContinue()
	if err != nil {
		return nil, fmt.Errorf("confirm %s: %w", pendingKind(sess), err)
	}

	result := &ConfirmResult{
		Confirmed: prompt != nil,
		Prompt:    prompt,
	}
	if prompt != nil {
		result.Transition = prompt.Kind.Transition()
		result.Events = []GameEvent{{
			Type:      EventConfirm,
			Message:   fmt.Sprintf("%s: %s", prompt.Title, prompt.Button),
			Timestamp: time.Now(),
		}}
	}
	result.GameState = sess.Engine.Snapshot()

	s.persist(sess.ID, "confirm")
	return result, nil
}

// pendingKind names the prompt at the head of the queue
func pendingKind(sess *Session) string {
	pending := sess.Engine.PendingPrompts()
	if len(pending) == 0 {
		return "prompt"
	}
	return string(pending[0].Kind)
}

// Reset starts a new game and a new run for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", sessionID, err)
	}
	sess.RunID = uuid.NewString()

	s.persist(sess.ID, "reset")
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = engine.DefaultHistoryLimit
	}
	if opts.Limit > engine.MaxHistoryPageLimit {
		opts.Limit = engine.MaxHistoryPageLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := max((total+opts.Limit-1)/opts.Limit, 1)

	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	moves := make([]engine.MoveHistoryEntry, 0, end-start)
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// TopScores returns the best finished runs, optionally for one config
func (s *gameServiceImpl) TopScores(ctx context.Context, configID string, limit int) ([]*RunRecord, error) {
	if s.scores == nil {
		return nil, ErrScoresDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	return s.scores.TopRuns(ctx, configID, limit)
}

// recordRun stores a run on the score board when a move ends it
func (s *gameServiceImpl) recordRun(ctx context.Context, sess *Session, outcome engine.MoveOutcome) {
	if !outcome.Victory && !outcome.GameOver {
		return
	}

	state := sess.Engine.Snapshot()
	run := &RunRecord{
		RunID:      sess.RunID,
		SessionID:  sess.ID,
		ConfigID:   sess.ConfigID,
		Outcome:    OutcomeGameOver,
		Level:      state.CurrentLevel,
		MaxLevels:  state.MaxLevels,
		Resources:  state.RunResources,
		Moves:      state.RunMoves,
		Lives:      state.Lives,
		FinishedAt: time.Now(),
	}
	if outcome.Victory {
		run.Outcome = OutcomeVictory
	}

	// The next run gets its own id whether or not the save succeeds
	sess.RunID = uuid.NewString()

	if s.scores == nil {
		return
	}
	if err := s.scores.SaveRun(ctx, run); err != nil {
		log.Warn("failed to record run", "session", sess.ID, "run", run.RunID, "err", err)
	}
}

func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn("failed to persist session", "session", sessionID, "after", after, "err", err)
	}
}

// moveEvents generates events from a move outcome in the order they happened
func moveEvents(label string, outcome engine.MoveOutcome) []GameEvent {
	now := time.Now()

	if !outcome.Accepted {
		return []GameEvent{{
			Type:      EventRejected,
			Message:   fmt.Sprintf("Move %s rejected: %s", label, rejectText(outcome.Rejected)),
			Timestamp: now,
			Position:  outcome.From,
		}}
	}

	events := []GameEvent{{
		Type:      EventMove,
		Message:   fmt.Sprintf("Moved %s to (%d,%d), %d moves left", label, outcome.To.X, outcome.To.Y, outcome.MovesAfter),
		Timestamp: now,
		Position:  outcome.To,
	}}

	if outcome.ResourceCollected {
		events = append(events, GameEvent{
			Type:      EventResource,
			Message:   fmt.Sprintf("Collected a resource at (%d,%d)", outcome.To.X, outcome.To.Y),
			Timestamp: now,
			Position:  outcome.To,
		})
	}

	for _, prompt := range outcome.Prompts {
		events = append(events, GameEvent{
			Type:      string(prompt.Kind),
			Message:   prompt.Message,
			Timestamp: now,
			Position:  outcome.To,
		})
	}

	return events
}

func rejectText(reason engine.RejectReason) string {
	switch reason {
	case engine.RejectBusy:
		return "waiting for confirmation"
	case engine.RejectFinished:
		return "game finished, reset to play again"
	case engine.RejectNoMoves:
		return "no moves left"
	case engine.RejectInvalidMove:
		return "not an adjacent cell on the board"
	}
	return strings.ReplaceAll(string(reason), "_", " ")
}
