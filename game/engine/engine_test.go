package engine

import (
	"errors"
	"testing"

	"github.com/zyedidia/generic/mapset"
)

// newTestEngine returns an engine on an empty level 1 board so tests can
// place cells by hand
func newTestEngine(t *testing.T) *GameEngine {
	t.Helper()
	e, err := NewEngineWithSeed(createTestConfig(), 1)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	e.level.PenaltyCells = mapset.New[Position]()
	e.level.ResourceCells = mapset.New[Position]()
	return e
}

func confirmAll(t *testing.T, e *GameEngine) []Prompt {
	t.Helper()
	var prompts []Prompt
	for e.IsBusy() {
		p, err := e.ConfirmAndContinue()
		if err != nil {
			t.Fatalf("ConfirmAndContinue failed: %v", err)
		}
		prompts = append(prompts, *p)
	}
	return prompts
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	s := e.Snapshot()
	if s.CurrentLevel != 1 || s.Lives != config.StartingLives {
		t.Errorf("Expected level 1 with %d lives, got level %d with %d", config.StartingLives, s.CurrentLevel, s.Lives)
	}
	if s.Moves != 22 || s.RequiredResources != 3 {
		t.Errorf("Expected 22 moves and 3 required, got %d and %d", s.Moves, s.RequiredResources)
	}
	if s.PlayerPos != (Position{}) || s.TargetPos != (Position{X: 7, Y: 7}) {
		t.Errorf("Expected player at origin and target at (7,7), got %+v and %+v", s.PlayerPos, s.TargetPos)
	}
	if len(s.PenaltyCells) != 2 || len(s.ResourceCells) != 3 {
		t.Errorf("Expected 2 penalties and 3 resources, got %d and %d", len(s.PenaltyCells), len(s.ResourceCells))
	}
	if s.Busy || s.Finished {
		t.Error("Expected a fresh engine to be idle")
	}
	if s.Message != config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", s.Message)
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Name = ""

	if _, err := NewEngine(config); !errors.Is(err, ErrInvalidGameConfig) {
		t.Errorf("Expected ErrInvalidGameConfig, got %v", err)
	}
	if _, err := NewEngine(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestEngine_ScenarioStepAndInvalidJump(t *testing.T) {
	e := newTestEngine(t)

	if !e.IsValidMove(1, 0) {
		t.Fatal("Expected (1,0) to be valid")
	}
	outcome := e.ApplyMove(1, 0)
	if !outcome.Accepted || e.level.Moves != 21 {
		t.Fatalf("Expected accepted move with 21 moves left, got %+v moves=%d", outcome, e.level.Moves)
	}

	before := *e.Snapshot()
	if e.IsValidMove(5, 5) {
		t.Fatal("Expected (5,5) to be invalid")
	}
	outcome = e.ApplyMove(5, 5)
	if outcome.Accepted || outcome.Rejected != RejectInvalidMove {
		t.Errorf("Expected invalid_move rejection, got %+v", outcome)
	}
	after := e.Snapshot()
	if after.PlayerPos != before.PlayerPos || after.Moves != before.Moves || after.TotalMoves != before.TotalMoves {
		t.Error("Expected rejected move to leave state unchanged")
	}
}

func TestEngine_ScenarioPenalty(t *testing.T) {
	e := newTestEngine(t)
	e.level.PenaltyCells.Put(Position{X: 2, Y: 0})

	e.AttemptMove(DirectionRight)
	outcome := e.AttemptMove(DirectionRight)

	if !outcome.PenaltyTriggered {
		t.Fatal("Expected penalty outcome")
	}
	if outcome.MovesBefore-outcome.MovesAfter != 2 || e.level.Moves != 19 {
		t.Errorf("Expected 2 moves lost to 19, got %d -> %d", outcome.MovesBefore, outcome.MovesAfter)
	}
	if e.level.PlayerPos != (Position{X: 2, Y: 0}) {
		t.Errorf("Expected player at (2,0), got %+v", e.level.PlayerPos)
	}
	if len(outcome.Prompts) != 1 || outcome.Prompts[0].Kind != PromptPenalty {
		t.Fatalf("Expected one penalty prompt, got %+v", outcome.Prompts)
	}

	// Busy until the penalty is acknowledged
	if !e.IsBusy() {
		t.Fatal("Expected engine to be busy")
	}
	rejected := e.AttemptMove(DirectionLeft)
	if rejected.Rejected != RejectBusy || e.level.PlayerPos != (Position{X: 2, Y: 0}) {
		t.Errorf("Expected busy rejection, got %+v", rejected)
	}
	if len(e.ValidMoves()) != 0 {
		t.Error("Expected no valid moves while busy")
	}

	prompt, err := e.ConfirmAndContinue()
	if err != nil || prompt == nil || prompt.Kind != PromptPenalty {
		t.Fatalf("Expected penalty prompt to be confirmed, got %+v %v", prompt, err)
	}
	if e.IsBusy() || e.level.CurrentLevel != 1 || e.level.PlayerPos != (Position{X: 2, Y: 0}) {
		t.Error("Expected penalty confirmation to resume play without changing the board")
	}
}

func TestEngine_ScenarioRetry(t *testing.T) {
	e := newTestEngine(t)
	e.level.Moves = 1
	e.level.CollectedResources = 1
	oldResources := e.level.ResourceCells

	outcome := e.AttemptMove(DirectionDown)
	if !outcome.Retry || outcome.Transition != TransitionRetry {
		t.Fatalf("Expected retry, got %+v", outcome)
	}
	if e.level.Lives != 2 {
		t.Errorf("Expected 2 lives, got %d", e.level.Lives)
	}
	if len(outcome.Prompts) != 1 || outcome.Prompts[0].Message != "2 lives remaining. Try again!" {
		t.Errorf("Expected retry prompt, got %+v", outcome.Prompts)
	}

	prompts := confirmAll(t, e)
	if len(prompts) != 1 || prompts[0].Kind != PromptRetry {
		t.Errorf("Expected one retry prompt, got %+v", prompts)
	}

	ls := e.level
	if ls.CurrentLevel != 1 || ls.Lives != 2 {
		t.Errorf("Expected level 1 with 2 lives, got level %d with %d", ls.CurrentLevel, ls.Lives)
	}
	if ls.Moves != 22 {
		t.Errorf("Expected moves reset to 22, got %d", ls.Moves)
	}
	if ls.PlayerPos != (Position{}) || ls.CollectedResources != 0 {
		t.Errorf("Expected fresh board, got player %+v collected %d", ls.PlayerPos, ls.CollectedResources)
	}
	if ls.ResourceCells.Size() != 3 || oldResources.Size() != 0 {
		t.Errorf("Expected regenerated resources, got %d", ls.ResourceCells.Size())
	}
}

func TestEngine_GameOverResets(t *testing.T) {
	e := newTestEngine(t)
	e.level.CurrentLevel = 4
	e.level.Lives = 1
	e.level.Moves = 1

	outcome := e.AttemptMove(DirectionRight)
	if !outcome.GameOver {
		t.Fatalf("Expected game over, got %+v", outcome)
	}
	if e.level.Lives != 0 {
		t.Errorf("Expected 0 lives before confirmation, got %d", e.level.Lives)
	}

	confirmAll(t, e)

	s := e.Snapshot()
	if s.CurrentLevel != 1 || s.Lives != DefaultStartingLives || s.Moves != 22 {
		t.Errorf("Expected fresh game, got level %d lives %d moves %d", s.CurrentLevel, s.Lives, s.Moves)
	}
	if s.RunMoves != 0 {
		t.Errorf("Expected run totals reset, got %d", s.RunMoves)
	}
	if s.TotalMoves != 1 {
		t.Errorf("Expected history to keep the move, got %d", s.TotalMoves)
	}
}

func TestEngine_LevelComplete(t *testing.T) {
	e := newTestEngine(t)
	e.level.PlayerPos = Position{X: 7, Y: 6}
	e.level.CollectedResources = 3

	outcome := e.AttemptMove(DirectionDown)
	if !outcome.LevelCompleted {
		t.Fatalf("Expected level complete, got %+v", outcome)
	}
	if outcome.Prompts[0].Message != "Great job! Ready for Level 2?" {
		t.Errorf("Unexpected prompt message %q", outcome.Prompts[0].Message)
	}

	// The board is untouched until the prompt is confirmed
	if e.level.PlayerPos != e.level.TargetPos {
		t.Error("Expected player on target before confirmation")
	}

	confirmAll(t, e)

	ls := e.level
	if ls.CurrentLevel != 2 || ls.Moves != 24 || ls.RequiredResources != 4 {
		t.Errorf("Expected level 2 with 24 moves and 4 required, got %d, %d, %d", ls.CurrentLevel, ls.Moves, ls.RequiredResources)
	}
	if ls.PlayerPos != (Position{}) || ls.PenaltyCells.Size() != 3 || ls.ResourceCells.Size() != 5 {
		t.Errorf("Expected a regenerated level 2 board, got %+v", e.Snapshot())
	}
}

func TestEngine_TargetWithoutResources(t *testing.T) {
	e := newTestEngine(t)
	e.level.PlayerPos = Position{X: 6, Y: 7}
	e.level.CollectedResources = 1

	outcome := e.AttemptMove(DirectionRight)
	if outcome.Transition != TransitionNone || e.IsBusy() {
		t.Fatalf("Expected a normal move, got %+v", outcome)
	}
	if e.level.CurrentLevel != 1 {
		t.Errorf("Expected level 1, got %d", e.level.CurrentLevel)
	}
	if e.Snapshot().Message != "The sleigh needs 2 more gifts" {
		t.Errorf("Unexpected message %q", e.Snapshot().Message)
	}

	// The player may step off and back
	if out := e.AttemptMove(DirectionLeft); !out.Accepted {
		t.Error("Expected player to step off the target")
	}
}

func TestEngine_PenaltyThenTransitionOrder(t *testing.T) {
	e := newTestEngine(t)
	e.level.Moves = 2
	e.level.PenaltyCells.Put(Position{X: 1, Y: 0})

	outcome := e.AttemptMove(DirectionRight)
	if len(outcome.Prompts) != 2 {
		t.Fatalf("Expected penalty and retry prompts, got %+v", outcome.Prompts)
	}
	if outcome.Prompts[0].Kind != PromptPenalty || outcome.Prompts[1].Kind != PromptRetry {
		t.Errorf("Expected penalty before retry, got %+v", outcome.Prompts)
	}

	first, _ := e.ConfirmAndContinue()
	if first.Kind != PromptPenalty || !e.IsBusy() {
		t.Fatal("Expected retry to remain pending after the penalty")
	}
	if e.level.PlayerPos != (Position{X: 1, Y: 0}) {
		t.Error("Expected board unchanged after penalty confirmation")
	}

	second, _ := e.ConfirmAndContinue()
	if second.Kind != PromptRetry || e.IsBusy() {
		t.Fatal("Expected retry confirmation to finish the queue")
	}
	if e.level.PlayerPos != (Position{}) {
		t.Error("Expected the level to restart")
	}
}

func TestEngine_VictoryIsTerminal(t *testing.T) {
	e := newTestEngine(t)
	e.level.CurrentLevel = e.config.MaxLevels
	e.level.RequiredResources = 1
	e.level.CollectedResources = 1
	e.level.PlayerPos = Position{X: 7, Y: 6}

	outcome := e.AttemptMove(DirectionDown)
	if !outcome.Victory {
		t.Fatalf("Expected victory, got %+v", outcome)
	}
	confirmAll(t, e)

	if !e.IsFinished() {
		t.Fatal("Expected game to be finished")
	}
	rejected := e.AttemptMove(DirectionUp)
	if rejected.Rejected != RejectFinished {
		t.Errorf("Expected finished rejection, got %+v", rejected)
	}

	s, err := e.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Finished || s.CurrentLevel != 1 || s.Lives != DefaultStartingLives {
		t.Errorf("Expected reset to start a new game, got %+v", s)
	}
}

func TestEngine_NoMovesRejected(t *testing.T) {
	e := newTestEngine(t)
	e.level.Moves = 0

	outcome := e.AttemptMove(DirectionRight)
	if outcome.Rejected != RejectNoMoves {
		t.Errorf("Expected no_moves rejection, got %+v", outcome)
	}
	if e.level.PlayerPos != (Position{}) {
		t.Error("Expected player not to move")
	}
}

func TestEngine_ConfirmWhenIdle(t *testing.T) {
	e := newTestEngine(t)
	prompt, err := e.ConfirmAndContinue()
	if prompt != nil || err != nil {
		t.Errorf("Expected (nil, nil) when idle, got %+v %v", prompt, err)
	}
}

func TestEngine_ConfirmKeepsPromptOnSetupFailure(t *testing.T) {
	e := newTestEngine(t)
	e.level.PlayerPos = Position{X: 7, Y: 6}
	e.level.CollectedResources = 3
	e.AttemptMove(DirectionDown)

	// Make level 2 impossible to place
	e.config.MaxPlacementAttempts = 1
	e.config.GridSize = 2
	e.config.MaxPenaltyCells = 3

	if _, err := e.ConfirmAndContinue(); !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("Expected ErrPlacementExhausted, got %v", err)
	}
	if !e.IsBusy() {
		t.Error("Expected the prompt to stay pending")
	}
}

func TestEngine_History(t *testing.T) {
	e := newTestEngine(t)
	e.level.ResourceCells.Put(Position{X: 1, Y: 0})

	if e.GetLastMove() != nil {
		t.Error("Expected no last move initially")
	}

	e.AttemptMove(DirectionRight)
	e.ApplyMove(1, 1)
	e.ApplyMove(9, 9)

	history := e.GetMoveHistory()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Action != "right" || !history[0].Resource || history[0].MoveNumber != 1 {
		t.Errorf("Unexpected first entry %+v", history[0])
	}
	if history[1].Action != "move_to" || history[1].ToPosition != (Position{X: 1, Y: 1}) {
		t.Errorf("Unexpected second entry %+v", history[1])
	}
	if last := e.GetLastMove(); last == nil || last.MoveNumber != 2 {
		t.Errorf("Expected last move number 2, got %+v", last)
	}

	s, _ := e.Reset()
	if s.TotalMoves != 2 || s.RunMoves != 0 {
		t.Errorf("Expected history kept and run reset, got total %d run %d", s.TotalMoves, s.RunMoves)
	}
}

func TestEngine_SnapshotRestore(t *testing.T) {
	e := newTestEngine(t)
	e.level.PenaltyCells.Put(Position{X: 1, Y: 0})
	e.level.ResourceCells.Put(Position{X: 3, Y: 3})
	e.AttemptMove(DirectionRight)

	snapshot := e.Snapshot()
	history := e.GetMoveHistory()

	restored, err := NewEngineWithSeed(createTestConfig(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Restore(snapshot, history); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got := restored.Snapshot()
	if got.PlayerPos != snapshot.PlayerPos || got.Moves != snapshot.Moves || got.Lives != snapshot.Lives {
		t.Errorf("Expected restored counters to match, got %+v", got)
	}
	if !restored.IsBusy() || len(got.PendingPrompts) != 1 {
		t.Error("Expected pending penalty prompt to survive restore")
	}
	if !restored.level.IsResource(Position{X: 3, Y: 3}) || !restored.level.IsPenalty(Position{X: 1, Y: 0}) {
		t.Error("Expected cells to survive restore")
	}
	if got.TotalMoves != 1 {
		t.Errorf("Expected restored history, got %d", got.TotalMoves)
	}

	if err := restored.Restore(nil, nil); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("Expected ErrNilSnapshot, got %v", err)
	}
	snapshot.GridSize = 5
	if err := restored.Restore(snapshot, nil); !errors.Is(err, ErrSnapshotMismatch) {
		t.Errorf("Expected ErrSnapshotMismatch, got %v", err)
	}
}

func TestEngine_SnapshotIsSorted(t *testing.T) {
	e := newTestEngine(t)
	for _, p := range []Position{{X: 5, Y: 2}, {X: 1, Y: 2}, {X: 4, Y: 0}} {
		e.level.ResourceCells.Put(p)
	}

	got := e.Snapshot().ResourceCells
	want := []Position{{X: 4, Y: 0}, {X: 1, Y: 2}, {X: 5, Y: 2}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected row-major order %v, got %v", want, got)
		}
	}
}
