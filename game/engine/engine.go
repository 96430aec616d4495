package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	// ErrNilSnapshot is returned when restoring from a nil snapshot
	ErrNilSnapshot = errors.New("snapshot cannot be nil")
	// ErrSnapshotMismatch is returned when a snapshot does not fit the config
	ErrSnapshotMismatch = errors.New("snapshot does not match config")
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	GetState() *LevelState
	Snapshot() *Snapshot
	Reset() (*Snapshot, error)
	IsBusy() bool
	IsFinished() bool
	PendingPrompts() []Prompt

	// Movement
	IsValidMove(x, y int) bool
	ValidMoves() []Position
	ApplyMove(x, y int) MoveOutcome
	AttemptMove(direction Direction) MoveOutcome
	ConfirmAndContinue() (*Prompt, error)

	// Configuration
	GetConfig() *GameConfig

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

var _ Engine = (*GameEngine)(nil)

// GameEngine implements the Engine interface. It is not safe for
// concurrent use; callers serialize access.
type GameEngine struct {
	config *GameConfig
	rng    *rand.Rand
	level  *LevelState

	pending  []Prompt
	finished bool
	message  string

	history      []MoveHistoryEntry
	runMoves     int
	runResources int
}

// NewEngine creates a new game engine and generates level 1. The config
// Seed is used when set, otherwise the clock seeds the generator.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	seed := int64(0)
	if config != nil {
		seed = config.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewEngineWithSeed(config, seed)
}

// NewEngineWithSeed creates a new game engine with a fixed generator seed
func NewEngineWithSeed(config *GameConfig, seed int64) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:  config,
		rng:     rand.New(rand.NewSource(seed)),
		level:   NewLevelState(config),
		message: config.Messages.Welcome,
	}
	if err := e.level.SetupLevel(config, e.rng); err != nil {
		return nil, err
	}
	return e, nil
}

// GetState returns the live level state
func (e *GameEngine) GetState() *LevelState {
	return e.level
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// IsBusy reports whether prompts are waiting for acknowledgment
func (e *GameEngine) IsBusy() bool {
	return len(e.pending) > 0
}

// IsFinished reports whether the last level was won and acknowledged
func (e *GameEngine) IsFinished() bool {
	return e.finished
}

// PendingPrompts returns a copy of the unacknowledged prompts in order
func (e *GameEngine) PendingPrompts() []Prompt {
	out := make([]Prompt, len(e.pending))
	copy(out, e.pending)
	return out
}

// IsValidMove checks adjacency and bounds only
func (e *GameEngine) IsValidMove(x, y int) bool {
	return e.level.IsValidMove(x, y)
}

// ValidMoves returns the cells the player may move to right now. It is
// empty while busy, after victory or with an exhausted budget.
func (e *GameEngine) ValidMoves() []Position {
	if e.rejectReason() != RejectNone {
		return []Position{}
	}
	return e.level.AdjacentMoves()
}

// AttemptMove resolves a direction against the player position and applies it
func (e *GameEngine) AttemptMove(direction Direction) MoveOutcome {
	to := e.level.PlayerPos.Step(direction)
	return e.move(string(direction), to)
}

// ApplyMove moves the player to (x,y). Rejected attempts change nothing.
func (e *GameEngine) ApplyMove(x, y int) MoveOutcome {
	return e.move("move_to", Position{X: x, Y: y})
}

func (e *GameEngine) rejectReason() RejectReason {
	switch {
	case e.IsBusy():
		return RejectBusy
	case e.finished:
		return RejectFinished
	case e.level.Moves <= 0:
		return RejectNoMoves
	}
	return RejectNone
}

func (e *GameEngine) move(action string, to Position) MoveOutcome {
	reason := e.rejectReason()
	if reason == RejectNone && !e.level.IsValidMove(to.X, to.Y) {
		reason = RejectInvalidMove
	}
	if reason != RejectNone {
		return MoveOutcome{
			Rejected:    reason,
			From:        e.level.PlayerPos,
			To:          to,
			MovesBefore: e.level.Moves,
			MovesAfter:  e.level.Moves,
		}
	}

	outcome := e.level.applyMove(to)
	outcome.Prompts = e.promptsFor(outcome)
	e.pending = append(e.pending, outcome.Prompts...)

	e.runMoves++
	if outcome.ResourceCollected {
		e.runResources++
	}
	e.message = e.messageFor(outcome)
	e.addMoveToHistory(action, outcome)

	return outcome
}

// promptsFor builds the prompts of an outcome: the penalty notice first,
// then the transition
func (e *GameEngine) promptsFor(outcome MoveOutcome) []Prompt {
	msgs := e.config.Messages
	var prompts []Prompt

	if outcome.PenaltyTriggered {
		prompts = append(prompts, newPrompt(PromptPenalty, msgs.Penalty, msgs.Penalty.Message))
	}

	switch outcome.Transition {
	case TransitionLevelComplete:
		prompts = append(prompts, newPrompt(PromptLevelComplete, msgs.LevelComplete,
			fmt.Sprintf(msgs.LevelComplete.Message, e.level.CurrentLevel)))
	case TransitionVictory:
		prompts = append(prompts, newPrompt(PromptVictory, msgs.Victory, msgs.Victory.Message))
	case TransitionRetry:
		prompts = append(prompts, newPrompt(PromptRetry, msgs.Retry,
			fmt.Sprintf(msgs.Retry.Message, e.level.Lives)))
	case TransitionGameOver:
		prompts = append(prompts, newPrompt(PromptGameOver, msgs.GameOver, msgs.GameOver.Message))
	}

	return prompts
}

func newPrompt(kind PromptKind, text PromptText, message string) Prompt {
	return Prompt{Kind: kind, Title: text.Title, Message: message, Button: text.Button}
}

// messageFor picks the status line shown after a move
func (e *GameEngine) messageFor(outcome MoveOutcome) string {
	msgs := e.config.Messages
	ls := e.level

	if n := len(outcome.Prompts); n > 0 {
		return outcome.Prompts[n-1].Message
	}
	if outcome.ResourceCollected {
		return fmt.Sprintf(msgs.Collected, ls.CollectedResources, ls.RequiredResources)
	}
	if outcome.To == ls.TargetPos {
		return fmt.Sprintf(msgs.TargetLocked, ls.MissingResources())
	}
	return ""
}

// ConfirmAndContinue acknowledges the oldest pending prompt and applies its
// deferred transition. It returns nil when nothing is pending. If the next
// level cannot be generated the prompt stays pending and the error is
// returned.
func (e *GameEngine) ConfirmAndContinue() (*Prompt, error) {
	if !e.IsBusy() {
		return nil, nil
	}
	prompt := e.pending[0]

	ls := e.level
	switch prompt.Kind.Transition() {
	case TransitionLevelComplete:
		if err := ls.SetupLevel(e.config, e.rng); err != nil {
			return nil, err
		}
	case TransitionRetry:
		ls.Moves = e.config.MovesForLevel(ls.CurrentLevel)
		if err := ls.SetupLevel(e.config, e.rng); err != nil {
			return nil, err
		}
	case TransitionGameOver:
		ls.CurrentLevel = 1
		ls.Lives = e.config.StartingLives
		if err := ls.SetupLevel(e.config, e.rng); err != nil {
			return nil, err
		}
		e.runMoves = 0
		e.runResources = 0
	case TransitionVictory:
		e.finished = true
	}

	e.pending = e.pending[1:]
	if !e.IsBusy() && prompt.Kind != PromptPenalty && !e.finished {
		e.message = fmt.Sprintf("Level %d: collect %d and reach the target", ls.CurrentLevel, ls.RequiredResources)
	}
	return &prompt, nil
}

// Reset starts a new game at level 1. Move history is kept.
func (e *GameEngine) Reset() (*Snapshot, error) {
	level := NewLevelState(e.config)
	if err := level.SetupLevel(e.config, e.rng); err != nil {
		return nil, err
	}

	e.level = level
	e.pending = nil
	e.finished = false
	e.runMoves = 0
	e.runResources = 0
	e.message = e.config.Messages.Welcome

	return e.Snapshot(), nil
}

// Snapshot returns a serializable copy of the full game state
func (e *GameEngine) Snapshot() *Snapshot {
	ls := e.level
	return &Snapshot{
		ConfigName:         e.config.Name,
		GridSize:           ls.GridSize,
		CurrentLevel:       ls.CurrentLevel,
		MaxLevels:          ls.MaxLevels,
		Lives:              ls.Lives,
		Moves:              ls.Moves,
		CollectedResources: ls.CollectedResources,
		RequiredResources:  ls.RequiredResources,
		PlayerPos:          ls.PlayerPos,
		TargetPos:          ls.TargetPos,
		PenaltyCells:       sortedPositions(ls.PenaltyCells),
		ResourceCells:      sortedPositions(ls.ResourceCells),
		ValidMoves:         e.ValidMoves(),
		Busy:               e.IsBusy(),
		PendingPrompts:     e.PendingPrompts(),
		Finished:           e.finished,
		Message:            e.message,
		RunMoves:           e.runMoves,
		RunResources:       e.runResources,
		TotalMoves:         len(e.history),
	}
}

// Restore replaces the engine state with a saved snapshot and history
// (used for persistence loading)
func (e *GameEngine) Restore(snapshot *Snapshot, history []MoveHistoryEntry) error {
	if snapshot == nil {
		return ErrNilSnapshot
	}
	if snapshot.GridSize != e.config.GridSize {
		return fmt.Errorf("%w: grid size %d, config %q has %d",
			ErrSnapshotMismatch, snapshot.GridSize, e.config.Name, e.config.GridSize)
	}
	if snapshot.CurrentLevel < 1 || snapshot.CurrentLevel > e.config.MaxLevels {
		return fmt.Errorf("%w: level %d outside 1..%d", ErrSnapshotMismatch, snapshot.CurrentLevel, e.config.MaxLevels)
	}

	e.level = &LevelState{
		GridSize:           snapshot.GridSize,
		CurrentLevel:       snapshot.CurrentLevel,
		MaxLevels:          e.config.MaxLevels,
		Lives:              snapshot.Lives,
		Moves:              snapshot.Moves,
		CollectedResources: snapshot.CollectedResources,
		RequiredResources:  snapshot.RequiredResources,
		PlayerPos:          snapshot.PlayerPos,
		TargetPos:          e.config.TargetPosition(),
		PenaltyCells:       positionSet(snapshot.PenaltyCells),
		ResourceCells:      positionSet(snapshot.ResourceCells),
	}
	e.pending = append([]Prompt(nil), snapshot.PendingPrompts...)
	e.finished = snapshot.Finished
	e.message = snapshot.Message
	e.runMoves = snapshot.RunMoves
	e.runResources = snapshot.RunResources
	e.history = append([]MoveHistoryEntry(nil), history...)

	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// addMoveToHistory appends an accepted move to the cumulative history
func (e *GameEngine) addMoveToHistory(action string, outcome MoveOutcome) {
	e.history = append(e.history, MoveHistoryEntry{
		Action:       action,
		FromPosition: outcome.From,
		ToPosition:   outcome.To,
		Level:        e.level.CurrentLevel,
		MovesLeft:    outcome.MovesAfter,
		Penalty:      outcome.PenaltyTriggered,
		Resource:     outcome.ResourceCollected,
		Transition:   outcome.Transition,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   len(e.history) + 1,
	})
}
