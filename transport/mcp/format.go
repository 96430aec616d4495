package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/service"
)

// Board characters
const (
	charPlayer   = "P"
	charTarget   = "T"
	charPenalty  = "X"
	charResource = "*"
	charValid    = "o"
	charEmpty    = "."
)

const boardLegend = "Legend: P=you T=target X=penalty *=resource o=legal move .=empty"

const gameInstructions = `RESOURCE RUSH

GOAL: Clear every level by reaching the target cell T in the bottom-right
corner. The player P starts each level in the top-left corner.

RULES:
1. Each step moves one cell up, down, left or right and costs one move.
2. Stepping on a penalty (X) costs one extra move. Penalty cells stay
   on the board.
3. Stepping on a resource (*) collects it.
4. The target completes the level only once the required number of
   resources has been collected. Before that it is an ordinary cell.
5. Running out of moves without completing the level costs a life and
   restarts the level on a new board.
6. Losing the last life is game over: the run restarts at level 1 with
   full lives. Clearing the last level wins the game.

PROMPTS:
Penalties, completed levels, retries, game over and victory raise a
prompt. Moves are rejected until the prompt is acknowledged with the
confirm tool. Prompts are acknowledged one at a time, oldest first.

LEVELS:
Later levels give more moves, more required resources and more
penalties. Cells are placed randomly when a level starts.

BOARD:
` + boardLegend + `
Coordinates are (x,y) with (0,0) in the top-left corner.

TIPS:
- Use game_state to see the board and legal moves.
- Use describe_cell before stepping somewhere you are unsure about.
- bulk_move stops at the first prompt, so check the result before
  sending more moves.`

// cellChar returns the board character of a cell
func cellChar(state *engine.Snapshot, p engine.Position, valid map[engine.Position]bool) string {
	switch {
	case p == state.PlayerPos:
		return charPlayer
	case p == state.TargetPos:
		return charTarget
	case containsPosition(state.PenaltyCells, p):
		return charPenalty
	case containsPosition(state.ResourceCells, p):
		return charResource
	case valid[p]:
		return charValid
	}
	return charEmpty
}

func containsPosition(positions []engine.Position, p engine.Position) bool {
	for _, q := range positions {
		if q == p {
			return true
		}
	}
	return false
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nRun: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n\n%s",
		session.ID, session.RunID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatSessionList(count int, sessions []service.SessionInfo) string {
	if count == 0 {
		return "No active sessions"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Active sessions: %d\n\n", count))
	for _, s := range sessions {
		line := fmt.Sprintf("- %s (config: %s, created: %s)", s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
		if st := s.GameState; st != nil {
			line += fmt.Sprintf(" level %d/%d, lives %d", st.CurrentLevel, st.MaxLevels, st.Lives)
			if st.Finished {
				line += ", finished"
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatGameState(state *engine.Snapshot) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("Level: %d/%d | Lives: %d | Moves: %d | Resources: %d/%d\n",
		state.CurrentLevel, state.MaxLevels, state.Lives, state.Moves,
		state.CollectedResources, state.RequiredResources))
	b.WriteString(fmt.Sprintf("Position: (%d,%d) | Target: (%d,%d) | Run moves: %d\n\n",
		state.PlayerPos.X, state.PlayerPos.Y, state.TargetPos.X, state.TargetPos.Y, state.RunMoves))

	valid := make(map[engine.Position]bool, len(state.ValidMoves))
	for _, p := range state.ValidMoves {
		valid[p] = true
	}

	for y := 0; y < state.GridSize; y++ {
		for x := 0; x < state.GridSize; x++ {
			b.WriteString(cellChar(state, engine.Position{X: x, Y: y}, valid))
		}
		b.WriteString("\n")
	}
	b.WriteString(boardLegend + "\n")

	if pm := possibleMoves(state); len(pm) > 0 {
		b.WriteString("\nPossible moves: " + strings.Join(pm, ",") + "\n")
	}

	if len(state.PendingPrompts) > 0 {
		b.WriteString("\nPending prompts (call confirm):\n")
		for _, p := range state.PendingPrompts {
			b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", p.Kind, p.Title, p.Message))
		}
	}

	if state.Finished {
		b.WriteString("\nVICTORY! Call reset_game to play again.")
	}

	if state.Message != "" {
		b.WriteString(fmt.Sprintf("\nMessage: %s", state.Message))
	}

	return b.String()
}

// possibleMoves lists the directions that lead to a legal cell
func possibleMoves(state *engine.Snapshot) []string {
	var moves []string
	for _, d := range engine.Directions {
		if containsPosition(state.ValidMoves, state.PlayerPos.Step(d)) {
			moves = append(moves, string(d))
		}
	}
	return moves
}

func formatOutcome(o engine.MoveOutcome) string {
	if !o.Accepted {
		return fmt.Sprintf("Rejected: %s", o.Rejected)
	}

	line := fmt.Sprintf("(%d,%d)→(%d,%d) moves %d→%d", o.From.X, o.From.Y, o.To.X, o.To.Y, o.MovesBefore, o.MovesAfter)
	var tags []string
	if o.ResourceCollected {
		tags = append(tags, "resource")
	}
	if o.PenaltyTriggered {
		tags = append(tags, "penalty")
	}
	if o.Transition != engine.TransitionNone {
		tags = append(tags, string(o.Transition))
	}
	if len(tags) > 0 {
		line += " [" + strings.Join(tags, ",") + "]"
	}
	return line
}

func formatEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move rejected\n")
	}
	b.WriteString(formatOutcome(result.Outcome) + "\n")
	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}
	formatEvents(&b, result.Events)

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	configName, gridSize := "", 0
	if result.GameState != nil {
		configName, gridSize = result.GameState.ConfigName, result.GameState.GridSize
	}
	b.WriteString(fmt.Sprintf("Session: %s • Config: %s • Grid: %dx%d\n", sessionID, configName, gridSize, gridSize))

	b.WriteString(fmt.Sprintf("Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves))
	if result.Truncated {
		b.WriteString(fmt.Sprintf("Truncated to the first %d moves\n", result.Limit))
	}
	if result.StoppedReason != "" {
		b.WriteString(fmt.Sprintf("Stopped on move %d: %s (%s)\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode))
	}
	b.WriteString(fmt.Sprintf("Moves left %d→%d, resources collected: %d\n", result.StartMoves, result.EndMoves, result.ResourcesCollected))

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\n")
		formatEvents(&b, result.Events)
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatStepLine(s service.StepInfo) string {
	line := fmt.Sprintf("%d. %s (%d,%d)→(%d,%d) moves=%d", s.Idx, s.Dir, s.From.X, s.From.Y, s.To.X, s.To.Y, s.MovesAfter)
	if s.Resource {
		line += " +resource"
	}
	if s.Penalty {
		line += " PENALTY"
	}
	if s.Transition != engine.TransitionNone {
		line += " " + string(s.Transition)
	}
	return line + "\n"
}

func formatConfirmResult(result *service.ConfirmResult) string {
	var b strings.Builder
	if !result.Confirmed || result.Prompt == nil {
		b.WriteString("Nothing to confirm\n")
	} else {
		b.WriteString(fmt.Sprintf("Confirmed: %s\n", result.Prompt.Title))
		if result.Transition != engine.TransitionNone {
			b.WriteString(fmt.Sprintf("Transition: %s\n", result.Transition))
		}
	}
	formatEvents(&b, result.Events)

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Move History (Page %d/%d) • Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves))

	if len(history.Moves) == 0 {
		b.WriteString("(no moves)\n")
		return b.String()
	}

	for _, move := range history.Moves {
		line := fmt.Sprintf("%d. %s (%d,%d)→(%d,%d) [Level %d, Moves left: %d]",
			move.MoveNumber, move.Action,
			move.FromPosition.X, move.FromPosition.Y, move.ToPosition.X, move.ToPosition.Y,
			move.Level, move.MovesLeft)
		if move.Resource {
			line += " +resource"
		}
		if move.Penalty {
			line += " PENALTY"
		}
		if move.Transition != engine.TransitionNone {
			line += " " + string(move.Transition)
		}
		b.WriteString(line + "\n")
	}

	if history.HasNext {
		b.WriteString(fmt.Sprintf("\nMore moves on page %d\n", history.Page+1))
	}
	return b.String()
}

func formatConfigs(configs []service.ConfigInfo) string {
	if len(configs) == 0 {
		return "No configurations available"
	}

	var b strings.Builder
	b.WriteString("Available configurations:\n\n")
	for _, cfg := range configs {
		b.WriteString(fmt.Sprintf("- %s: %s (%dx%d, %d levels, %d lives)\n",
			cfg.ConfigID, cfg.Name, cfg.GridSize, cfg.GridSize, cfg.MaxLevels, cfg.StartingLives))
		if cfg.Description != "" {
			b.WriteString(fmt.Sprintf("  %s\n", cfg.Description))
		}
	}
	return b.String()
}

func formatScores(runs []service.RunRecord) string {
	if len(runs) == 0 {
		return "No finished runs yet"
	}

	var b strings.Builder
	b.WriteString("Top runs:\n\n")
	for i, run := range runs {
		b.WriteString(fmt.Sprintf("%d. %s level %d/%d, %d resources, %d moves (%s, session %s, %s)\n",
			i+1, run.Outcome, run.Level, run.MaxLevels, run.Resources, run.Moves,
			run.ConfigID, run.SessionID, run.FinishedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// describeCell explains what is on a cell and whether it can be entered
func describeCell(state *engine.Snapshot, p engine.Position) string {
	var kind string
	switch {
	case p == state.PlayerPos:
		kind = "the player's current position"
	case p == state.TargetPos:
		if state.CollectedResources >= state.RequiredResources {
			kind = "the target, unlocked: stepping here completes the level"
		} else {
			kind = fmt.Sprintf("the target, locked: %d more resources needed",
				state.RequiredResources-state.CollectedResources)
		}
	case containsPosition(state.PenaltyCells, p):
		kind = "a penalty cell: stepping here costs one extra move"
	case containsPosition(state.ResourceCells, p):
		kind = "a resource: stepping here collects it"
	default:
		kind = "an empty cell"
	}

	reach := "not reachable this turn"
	switch {
	case state.Finished:
		reach = "not reachable, the game is finished"
	case state.Busy:
		reach = "not reachable until pending prompts are confirmed"
	case containsPosition(state.ValidMoves, p):
		reach = "reachable with one move"
	}

	dist := engine.ManhattanDistance(state.PlayerPos, p)
	return fmt.Sprintf("Cell (%d,%d) is %s.\nIt is %s (distance %d).", p.X, p.Y, kind, reach, dist)
}
