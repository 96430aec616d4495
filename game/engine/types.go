package engine

import (
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// Direction is a single orthogonal step
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"

	// Validation constants
	MinGridSize          = 2
	MaxGridSize          = 32
	MaxLevelCount        = 100
	MaxBulkMoves         = 50
	DefaultMaxAttempts   = 10000
	WebSocketBufferSize  = 256
	DefaultHistoryLimit  = 20
	MaxHistoryPageLimit  = 100
	DefaultStartingLives = 3
)

// Directions lists the four directions in a stable order
var Directions = []Direction{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// ParseDirection converts user input into a Direction. It is
// case-insensitive and accepts compass names and WASD letters.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "north", "w":
		return DirectionUp, true
	case "down", "south", "s":
		return DirectionDown, true
	case "left", "west", "a":
		return DirectionLeft, true
	case "right", "east", "d":
		return DirectionRight, true
	}
	return "", false
}

// Delta returns the coordinate change for a direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirectionUp:
		return 0, -1
	case DirectionDown:
		return 0, 1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	}
	return 0, 0
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Step returns the position one step away in the given direction
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Transition is a level or game change caused by a move. It must be
// acknowledged before play continues.
type Transition string

const (
	TransitionNone          Transition = ""
	TransitionLevelComplete Transition = "level_complete"
	TransitionVictory       Transition = "victory"
	TransitionRetry         Transition = "retry"
	TransitionGameOver      Transition = "game_over"
)

// RejectReason explains why a move attempt was ignored
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectInvalidMove RejectReason = "invalid_move"
	RejectBusy        RejectReason = "busy"
	RejectNoMoves     RejectReason = "no_moves"
	RejectFinished    RejectReason = "finished"
)

// PromptKind identifies a modal acknowledgment
type PromptKind string

const (
	PromptPenalty       PromptKind = "penalty"
	PromptLevelComplete PromptKind = "level_complete"
	PromptVictory       PromptKind = "victory"
	PromptRetry         PromptKind = "retry"
	PromptGameOver      PromptKind = "game_over"
)

// Transition maps a prompt to the transition applied when it is confirmed
func (k PromptKind) Transition() Transition {
	switch k {
	case PromptLevelComplete:
		return TransitionLevelComplete
	case PromptVictory:
		return TransitionVictory
	case PromptRetry:
		return TransitionRetry
	case PromptGameOver:
		return TransitionGameOver
	}
	return TransitionNone
}

// Prompt is a modal message the renderer presents and the user dismisses
type Prompt struct {
	Kind    PromptKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Button  string     `json:"button"`
}

// MoveOutcome describes everything a single move attempt did
type MoveOutcome struct {
	Accepted bool         `json:"accepted"`
	Rejected RejectReason `json:"rejected,omitempty"`

	From        Position `json:"from"`
	To          Position `json:"to"`
	MovesBefore int      `json:"moves_before"`
	MovesAfter  int      `json:"moves_after"`

	PenaltyTriggered  bool `json:"penalty_triggered,omitempty"`
	ResourceCollected bool `json:"resource_collected,omitempty"`
	LevelCompleted    bool `json:"level_completed,omitempty"`
	Victory           bool `json:"victory,omitempty"`
	Retry             bool `json:"retry,omitempty"`
	GameOver          bool `json:"game_over,omitempty"`

	Transition Transition `json:"transition,omitempty"`
	Prompts    []Prompt   `json:"prompts,omitempty"`
}

// LevelState holds the board and counters for the level in play
type LevelState struct {
	GridSize           int
	CurrentLevel       int
	MaxLevels          int
	Lives              int
	Moves              int
	CollectedResources int
	RequiredResources  int
	PlayerPos          Position
	TargetPos          Position
	PenaltyCells       mapset.Set[Position]
	ResourceCells      mapset.Set[Position]
}

// Snapshot is the full, serializable view of a game after a mutation.
// It is sufficient for a stateless redraw and for persistence.
type Snapshot struct {
	ConfigName         string     `json:"config_name"`
	GridSize           int        `json:"grid_size"`
	CurrentLevel       int        `json:"current_level"`
	MaxLevels          int        `json:"max_levels"`
	Lives              int        `json:"lives"`
	Moves              int        `json:"moves"`
	CollectedResources int        `json:"collected_resources"`
	RequiredResources  int        `json:"required_resources"`
	PlayerPos          Position   `json:"player_pos"`
	TargetPos          Position   `json:"target_pos"`
	PenaltyCells       []Position `json:"penalty_cells"`
	ResourceCells      []Position `json:"resource_cells"`
	ValidMoves         []Position `json:"valid_moves"`
	Busy               bool       `json:"busy"`
	PendingPrompts     []Prompt   `json:"pending_prompts,omitempty"`
	Finished           bool       `json:"finished"`
	Message            string     `json:"message"`

	// Run totals survive retries and level changes; a game over starts a new run
	RunMoves     int `json:"run_moves"`
	RunResources int `json:"run_resources"`
	TotalMoves   int `json:"total_moves"`
}

// MoveHistoryEntry represents a single accepted move
type MoveHistoryEntry struct {
	Action       string     `json:"action"`
	FromPosition Position   `json:"from_position"`
	ToPosition   Position   `json:"to_position"`
	Level        int        `json:"level"`
	MovesLeft    int        `json:"moves_left"`
	Penalty      bool       `json:"penalty,omitempty"`
	Resource     bool       `json:"resource,omitempty"`
	Transition   Transition `json:"transition,omitempty"`
	Timestamp    int64      `json:"timestamp"`
	MoveNumber   int        `json:"move_number"`
}
