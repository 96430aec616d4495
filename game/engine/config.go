package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGameConfig is wrapped by every ValidateGameConfig failure
var ErrInvalidGameConfig = errors.New("config validation")

// PromptText is the title, body and button label of one modal prompt
type PromptText struct {
	Title   string `json:"title" yaml:"title"`
	Message string `json:"message" yaml:"message"`
	Button  string `json:"button" yaml:"button"`
}

// Messages holds the player-facing text for every game event
type Messages struct {
	Welcome       string     `json:"welcome" yaml:"welcome"`
	Collected     string     `json:"collected" yaml:"collected"`
	TargetLocked  string     `json:"target_locked" yaml:"target_locked"`
	Penalty       PromptText `json:"penalty" yaml:"penalty"`
	LevelComplete PromptText `json:"level_complete" yaml:"level_complete"`
	Victory       PromptText `json:"victory" yaml:"victory"`
	Retry         PromptText `json:"retry" yaml:"retry"`
	GameOver      PromptText `json:"game_over" yaml:"game_over"`
}

// GameConfig defines the board size, level scaling and messages of a game
type GameConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	GridSize      int `json:"grid_size" yaml:"grid_size"`
	MaxLevels     int `json:"max_levels" yaml:"max_levels"`
	StartingLives int `json:"starting_lives" yaml:"starting_lives"`

	// moves = BaseMoves + level*MovesPerLevel
	BaseMoves     int `json:"base_moves" yaml:"base_moves"`
	MovesPerLevel int `json:"moves_per_level" yaml:"moves_per_level"`

	// required = min(BaseResources + level/2, MaxRequiredResources)
	BaseResources        int `json:"base_resources" yaml:"base_resources"`
	MaxRequiredResources int `json:"max_required_resources" yaml:"max_required_resources"`

	// penalties = min(level+1, MaxPenaltyCells)
	MaxPenaltyCells int `json:"max_penalty_cells" yaml:"max_penalty_cells"`

	// Upper bound on rejection-sampling draws per placed cell
	MaxPlacementAttempts int `json:"max_placement_attempts" yaml:"max_placement_attempts"`

	// Seed makes level generation reproducible; 0 means time-based
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	Messages Messages `json:"messages" yaml:"messages"`
}

// DefaultMessages returns the stock Resource Rush texts
func DefaultMessages() Messages {
	return Messages{
		Welcome:      "Collect the gifts and reach the sleigh before your moves run out!",
		Collected:    "Gift collected! %d/%d",
		TargetLocked: "The sleigh needs %d more gifts",
		Penalty: PromptText{
			Title:   "Oops!",
			Message: "You hit an icy patch! Lost an extra move!",
			Button:  "OK",
		},
		LevelComplete: PromptText{
			Title:   "Level Complete!",
			Message: "Great job! Ready for Level %d?",
			Button:  "Next Level",
		},
		Victory: PromptText{
			Title:   "Congratulations!",
			Message: "You saved Christmas! Thanks for playing!",
			Button:  "Share",
		},
		Retry: PromptText{
			Title:   "Out of Moves!",
			Message: "%d lives remaining. Try again!",
			Button:  "Retry Level",
		},
		GameOver: PromptText{
			Title:   "Game Over",
			Message: "No more lives! Starting over from Level 1",
			Button:  "Start Over",
		},
	}
}

// DefaultGameConfig returns the classic 8x8, ten level configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:                 "classic",
		Description:          "Classic 8x8 board with ten levels",
		GridSize:             8,
		MaxLevels:            10,
		StartingLives:        DefaultStartingLives,
		BaseMoves:            20,
		MovesPerLevel:        2,
		BaseResources:        3,
		MaxRequiredResources: 8,
		MaxPenaltyCells:      10,
		MaxPlacementAttempts: DefaultMaxAttempts,
		Messages:             DefaultMessages(),
	}
}

// Normalize fills zero-valued fields with defaults so that config files
// only need to list what they change
func (c *GameConfig) Normalize() {
	def := DefaultGameConfig()
	if c.GridSize == 0 {
		c.GridSize = def.GridSize
	}
	if c.MaxLevels == 0 {
		c.MaxLevels = def.MaxLevels
	}
	if c.StartingLives == 0 {
		c.StartingLives = def.StartingLives
	}
	if c.BaseMoves == 0 {
		c.BaseMoves = def.BaseMoves
	}
	if c.MovesPerLevel == 0 {
		c.MovesPerLevel = def.MovesPerLevel
	}
	if c.BaseResources == 0 {
		c.BaseResources = def.BaseResources
	}
	if c.MaxRequiredResources == 0 {
		c.MaxRequiredResources = def.MaxRequiredResources
	}
	if c.MaxPenaltyCells == 0 {
		c.MaxPenaltyCells = def.MaxPenaltyCells
	}
	if c.MaxPlacementAttempts == 0 {
		c.MaxPlacementAttempts = def.MaxPlacementAttempts
	}

	m := &c.Messages
	dm := def.Messages
	fillString(&m.Welcome, dm.Welcome)
	fillString(&m.Collected, dm.Collected)
	fillString(&m.TargetLocked, dm.TargetLocked)
	fillPrompt(&m.Penalty, dm.Penalty)
	fillPrompt(&m.LevelComplete, dm.LevelComplete)
	fillPrompt(&m.Victory, dm.Victory)
	fillPrompt(&m.Retry, dm.Retry)
	fillPrompt(&m.GameOver, dm.GameOver)
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillPrompt(dst *PromptText, def PromptText) {
	fillString(&dst.Title, def.Title)
	fillString(&dst.Message, def.Message)
	fillString(&dst.Button, def.Button)
}

// ValidateGameConfig validates a game configuration for correctness and
// checks that every level fits on the board
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidGameConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGameConfig)
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("%w: grid_size must be between %d and %d, got %d",
			ErrInvalidGameConfig, MinGridSize, MaxGridSize, config.GridSize)
	}
	if config.MaxLevels < 1 || config.MaxLevels > MaxLevelCount {
		return fmt.Errorf("%w: max_levels must be between 1 and %d, got %d",
			ErrInvalidGameConfig, MaxLevelCount, config.MaxLevels)
	}
	if config.StartingLives < 1 {
		return fmt.Errorf("%w: starting_lives must be positive, got %d", ErrInvalidGameConfig, config.StartingLives)
	}
	if config.BaseMoves < 1 {
		return fmt.Errorf("%w: base_moves must be positive, got %d", ErrInvalidGameConfig, config.BaseMoves)
	}
	if config.MovesPerLevel < 0 {
		return fmt.Errorf("%w: moves_per_level cannot be negative, got %d", ErrInvalidGameConfig, config.MovesPerLevel)
	}
	if config.BaseResources < 0 || config.MaxRequiredResources < 0 || config.MaxPenaltyCells < 0 {
		return fmt.Errorf("%w: resource and penalty counts cannot be negative", ErrInvalidGameConfig)
	}
	if config.MaxPlacementAttempts < 1 {
		return fmt.Errorf("%w: max_placement_attempts must be positive, got %d",
			ErrInvalidGameConfig, config.MaxPlacementAttempts)
	}

	// Every level must leave room for the start and target cells
	free := config.GridSize*config.GridSize - 2
	for level := 1; level <= config.MaxLevels; level++ {
		plan := config.PlanLevel(level)
		if need := plan.PenaltyCells + plan.ResourceCells; need > free {
			return fmt.Errorf("%w: level %d needs %d special cells but the %dx%d grid has only %d free",
				ErrInvalidGameConfig, level, need, config.GridSize, config.GridSize, free)
		}
	}

	templates := []struct {
		field    string
		template string
		ints     int
		purpose  string
	}{
		{"messages.level_complete.message", config.Messages.LevelComplete.Message, 1, "the next level"},
		{"messages.retry.message", config.Messages.Retry.Message, 1, "remaining lives"},
		{"messages.collected", config.Messages.Collected, 2, "collected/required"},
		{"messages.target_locked", config.Messages.TargetLocked, 1, "missing resources"},
	}
	for _, t := range templates {
		if n, onlyInts := formatVerbs(t.template); n != t.ints || !onlyInts {
			return fmt.Errorf("%w: %s must contain exactly %d %%d for %s and no other verbs, got %q",
				ErrInvalidGameConfig, t.field, t.ints, t.purpose, t.template)
		}
	}

	return nil
}

// formatVerbs counts the verbs of a fmt template and reports whether all of
// them are %d. "%%" is a literal percent sign and a trailing "%" counts as
// a bad verb.
func formatVerbs(template string) (count int, onlyInts bool) {
	onlyInts = true
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		i++
		for i < len(template) && strings.IndexByte("+-# 0123456789.", template[i]) >= 0 {
			i++
		}
		if i == len(template) {
			return count + 1, false
		}
		if template[i] == '%' {
			continue
		}
		count++
		if template[i] != 'd' {
			onlyInts = false
		}
	}
	return count, onlyInts
}

// TargetPosition returns the fixed bottom-right target cell
func (c *GameConfig) TargetPosition() Position {
	return Position{X: c.GridSize - 1, Y: c.GridSize - 1}
}

// MovesForLevel returns the move budget of a level
func (c *GameConfig) MovesForLevel(level int) int {
	return c.BaseMoves + level*c.MovesPerLevel
}

// RequiredForLevel returns how many resources a level asks for
func (c *GameConfig) RequiredForLevel(level int) int {
	return min(c.BaseResources+level/2, c.MaxRequiredResources)
}

// PenaltyCountForLevel returns how many penalty cells a level places
func (c *GameConfig) PenaltyCountForLevel(level int) int {
	return min(level+1, c.MaxPenaltyCells)
}

// ResourceCountForLevel returns how many resource cells a level places
func (c *GameConfig) ResourceCountForLevel(level int) int {
	return c.RequiredForLevel(level) + level/2
}

// LevelPlan summarizes the generated parameters of one level
type LevelPlan struct {
	Level             int `json:"level"`
	Moves             int `json:"moves"`
	RequiredResources int `json:"required_resources"`
	PenaltyCells      int `json:"penalty_cells"`
	ResourceCells     int `json:"resource_cells"`
}

// PlanLevel computes the parameters of a level without generating it
func (c *GameConfig) PlanLevel(level int) LevelPlan {
	return LevelPlan{
		Level:             level,
		Moves:             c.MovesForLevel(level),
		RequiredResources: c.RequiredForLevel(level),
		PenaltyCells:      c.PenaltyCountForLevel(level),
		ResourceCells:     c.ResourceCountForLevel(level),
	}
}

// PlanLevels computes the plan of every level in order
func (c *GameConfig) PlanLevels() []LevelPlan {
	plans := make([]LevelPlan, 0, c.MaxLevels)
	for level := 1; level <= c.MaxLevels; level++ {
		plans = append(plans, c.PlanLevel(level))
	}
	return plans
}
