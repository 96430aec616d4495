package engine

import (
	"cmp"
	"slices"

	"github.com/zyedidia/generic/mapset"
)

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// ShortestRoute returns the fewest moves needed to walk from the start
// corner to the target corner of a gridSize board
func ShortestRoute(gridSize int) int {
	return 2 * (gridSize - 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sortedPositions lists a set in row-major order
func sortedPositions(set mapset.Set[Position]) []Position {
	out := make([]Position, 0, set.Size())
	set.Each(func(p Position) {
		out = append(out, p)
	})
	slices.SortFunc(out, comparePositions)
	return out
}

func comparePositions(a, b Position) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// positionSet builds a set from a list of positions
func positionSet(positions []Position) mapset.Set[Position] {
	set := mapset.New[Position]()
	for _, p := range positions {
		set.Put(p)
	}
	return set
}
