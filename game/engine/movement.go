package engine

// InBounds checks if a coordinate lies on the board
func (ls *LevelState) InBounds(x, y int) bool {
	return x >= 0 && x < ls.GridSize && y >= 0 && y < ls.GridSize
}

// IsValidMove checks if (x,y) is on the board and exactly one orthogonal
// step away from the player
func (ls *LevelState) IsValidMove(x, y int) bool {
	if !ls.InBounds(x, y) {
		return false
	}
	dx := abs(x - ls.PlayerPos.X)
	dy := abs(y - ls.PlayerPos.Y)
	return dx+dy == 1
}

// AdjacentMoves returns the in-bounds neighbours of the player in
// Directions order
func (ls *LevelState) AdjacentMoves() []Position {
	moves := make([]Position, 0, len(Directions))
	for _, d := range Directions {
		p := ls.PlayerPos.Step(d)
		if ls.IsValidMove(p.X, p.Y) {
			moves = append(moves, p)
		}
	}
	return moves
}

// applyMove performs the effects of an accepted move in order: step,
// spend a move, penalty, resource pickup, target check and budget check.
// The caller has already checked the move against the guards.
func (ls *LevelState) applyMove(to Position) MoveOutcome {
	outcome := MoveOutcome{
		Accepted:    true,
		From:        ls.PlayerPos,
		To:          to,
		MovesBefore: ls.Moves,
	}

	ls.PlayerPos = to
	ls.Moves--

	if ls.IsPenalty(to) {
		ls.Moves = max(ls.Moves-1, 0)
		outcome.PenaltyTriggered = true
	}

	if ls.IsResource(to) {
		ls.ResourceCells.Remove(to)
		ls.CollectedResources++
		outcome.ResourceCollected = true
	}

	if to == ls.TargetPos && ls.CollectedResources >= ls.RequiredResources {
		if ls.CurrentLevel >= ls.MaxLevels {
			outcome.Victory = true
			outcome.Transition = TransitionVictory
		} else {
			ls.CurrentLevel++
			outcome.LevelCompleted = true
			outcome.Transition = TransitionLevelComplete
		}
	}

	// A completed level wins over an empty budget on the same move
	if outcome.Transition == TransitionNone && ls.Moves == 0 {
		ls.Lives--
		if ls.Lives <= 0 {
			outcome.GameOver = true
			outcome.Transition = TransitionGameOver
		} else {
			outcome.Retry = true
			outcome.Transition = TransitionRetry
		}
	}

	outcome.MovesAfter = ls.Moves
	return outcome
}
