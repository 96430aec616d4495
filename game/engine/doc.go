// Package engine provides the core game logic for Resource Rush.
//
// The engine package implements the game mechanics including:
//   - Orthogonal one-step movement on a square grid
//   - Move budget management and penalty cells
//   - Resource collection and level completion
//   - Lives, retries, game over and victory
//   - Random level generation with bounded rejection sampling
//
// Core Types:
//
// LevelState holds the board for the current level: grid size, player and
// target positions, remaining moves, lives, level index, resource counts and
// the penalty and resource cell sets. GameEngine wraps a LevelState with the
// two-phase move protocol: ApplyMove returns a MoveOutcome synchronously and
// queues the prompts a renderer must present, and ConfirmAndContinue
// acknowledges them one at a time, applying any deferred level transition.
// While prompts are pending the engine is busy and rejects every move.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultGameConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome := gameEngine.AttemptMove(engine.DirectionRight)
//	for gameEngine.IsBusy() {
//		prompt, err := gameEngine.ConfirmAndContinue()
//		...
//	}
//	snapshot := gameEngine.Snapshot()
//
// Game Rules:
//
// The player starts every level in the top-left corner and must reach the
// bottom-right target after collecting the required number of resources.
// Every step costs one move; penalty cells cost one more. Running out of
// moves costs a life and retries the level; losing the last life restarts
// the game from level 1. Completing the last level wins the game.
package engine
