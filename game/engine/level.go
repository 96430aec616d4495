package engine

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/zyedidia/generic/mapset"
)

// ErrPlacementExhausted is returned when rejection sampling cannot find a
// free cell within the configured number of attempts
var ErrPlacementExhausted = errors.New("cell placement exhausted")

// NewLevelState creates the state of a fresh game at level 1. The board is
// empty until SetupLevel is called.
func NewLevelState(config *GameConfig) *LevelState {
	return &LevelState{
		GridSize:      config.GridSize,
		CurrentLevel:  1,
		MaxLevels:     config.MaxLevels,
		Lives:         config.StartingLives,
		TargetPos:     config.TargetPosition(),
		PenaltyCells:  mapset.New[Position](),
		ResourceCells: mapset.New[Position](),
	}
}

// SetupLevel regenerates the board for CurrentLevel. It resets the player,
// the move budget and the resource counters; CurrentLevel and Lives are
// left for the caller to manage.
func (ls *LevelState) SetupLevel(config *GameConfig, rng *rand.Rand) error {
	ls.PenaltyCells = mapset.New[Position]()
	ls.ResourceCells = mapset.New[Position]()
	ls.CollectedResources = 0

	ls.GridSize = config.GridSize
	ls.MaxLevels = config.MaxLevels
	ls.Moves = config.MovesForLevel(ls.CurrentLevel)
	ls.RequiredResources = config.RequiredForLevel(ls.CurrentLevel)

	ls.PlayerPos = Position{X: 0, Y: 0}
	ls.TargetPos = config.TargetPosition()

	penalties := config.PenaltyCountForLevel(ls.CurrentLevel)
	if err := ls.placeRandomCells(penalties, ls.PenaltyCells, rng, config.MaxPlacementAttempts); err != nil {
		return fmt.Errorf("level %d penalty cells: %w", ls.CurrentLevel, err)
	}

	resources := config.ResourceCountForLevel(ls.CurrentLevel)
	if err := ls.placeRandomCells(resources, ls.ResourceCells, rng, config.MaxPlacementAttempts); err != nil {
		return fmt.Errorf("level %d resource cells: %w", ls.CurrentLevel, err)
	}

	return nil
}

// placeRandomCells samples count free cells uniformly into the target set
func (ls *LevelState) placeRandomCells(count int, into mapset.Set[Position], rng *rand.Rand, maxAttempts int) error {
	for placed := 0; placed < count; placed++ {
		ok := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			p := Position{X: rng.Intn(ls.GridSize), Y: rng.Intn(ls.GridSize)}
			if ls.isOccupied(p) {
				continue
			}
			into.Put(p)
			ok = true
			break
		}
		if !ok {
			return fmt.Errorf("%w: placed %d of %d cells, %d attempts each", ErrPlacementExhausted, placed, count, maxAttempts)
		}
	}
	return nil
}

// isOccupied reports whether a cell is unavailable for a new special cell
func (ls *LevelState) isOccupied(p Position) bool {
	return p == ls.PlayerPos ||
		p == ls.TargetPos ||
		ls.IsPenalty(p) ||
		ls.IsResource(p)
}

// IsPenalty reports whether p is a penalty cell
func (ls *LevelState) IsPenalty(p Position) bool {
	return ls.PenaltyCells.Has(p)
}

// IsResource reports whether p still holds a resource
func (ls *LevelState) IsResource(p Position) bool {
	return ls.ResourceCells.Has(p)
}

// MissingResources returns how many more resources the target requires
func (ls *LevelState) MissingResources() int {
	return max(ls.RequiredResources-ls.CollectedResources, 0)
}
