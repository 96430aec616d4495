package service

import (
	"time"

	"github.com/wricardo/resource-rush/game/engine"
)

// Event types reported in GameEvent.Type
const (
	EventMove          = "move"
	EventPenalty       = "penalty"
	EventResource      = "resource"
	EventLevelComplete = "level_complete"
	EventVictory       = "victory"
	EventRetry         = "retry"
	EventGameOver      = "game_over"
	EventRejected      = "rejected"
	EventConfirm       = "confirm"
	EventReset         = "reset"
)

// Run outcomes stored on the score board
const (
	OutcomeVictory  = "victory"
	OutcomeGameOver = "game_over"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	RunID          string             `json:"run_id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool               `json:"success"`
	Outcome   engine.MoveOutcome `json:"outcome"`
	GameState *engine.Snapshot   `json:"game_state"`
	Message   string             `json:"message"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// ConfirmResult contains the prompt acknowledged by a confirm call
type ConfirmResult struct {
	Confirmed  bool              `json:"confirmed"`
	Prompt     *engine.Prompt    `json:"prompt,omitempty"`
	Transition engine.Transition `json:"transition,omitempty"`
	GameState  *engine.Snapshot  `json:"game_state"`
	Events     []GameEvent       `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int              `json:"moves_executed"`
	RequestedMoves int              `json:"requested_moves"`
	Success        bool             `json:"success"`
	GameState      *engine.Snapshot `json:"game_state"`
	Events         []GameEvent      `json:"events"`
	StoppedReason  string           `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string           `json:"stop_reason_code,omitempty"` // busy|finished|no_moves|invalid_move|penalty|level_complete|victory|retry|game_over
	StoppedOnMove  int              `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool             `json:"truncated,omitempty"`
	Limit          int              `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos           engine.Position `json:"start_pos"`
	EndPos             engine.Position `json:"end_pos"`
	StartMoves         int             `json:"start_moves"`
	EndMoves           int             `json:"end_moves"`
	ResourcesCollected int             `json:"resources_collected"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx         int               `json:"idx"`
	Dir         string            `json:"dir"`
	From        engine.Position   `json:"from"`
	To          engine.Position   `json:"to"`
	MovesBefore int               `json:"moves_before"`
	MovesAfter  int               `json:"moves_after"`
	Penalty     bool              `json:"penalty,omitempty"`
	Resource    bool              `json:"resource,omitempty"`
	Transition  engine.Transition `json:"transition,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename      string `json:"filename"`
	ConfigID      string `json:"config_id"` // The identifier to use for session creation
	Name          string `json:"name"`      // Display name
	Description   string `json:"description"`
	GridSize      int    `json:"grid_size"`
	MaxLevels     int    `json:"max_levels"`
	StartingLives int    `json:"starting_lives"`
}

// RunRecord is one finished run on the score board
type RunRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	SessionID  string    `json:"session_id"`
	ConfigID   string    `json:"config_id"`
	Outcome    string    `json:"outcome"`
	Level      int       `json:"level"`
	MaxLevels  int       `json:"max_levels"`
	Resources  int       `json:"resources"`
	Moves      int       `json:"moves"`
	Lives      int       `json:"lives"`
	FinishedAt time.Time `json:"finished_at"`
}
