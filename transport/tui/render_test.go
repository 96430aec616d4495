package tui

import (
	"strings"
	"testing"

	"github.com/wricardo/resource-rush/game/engine"
)

func TestCellAt(t *testing.T) {
	tests := []struct {
		name     string
		x, y     int
		expected engine.Position
		ok       bool
	}{
		{"first cell", boardLeft, boardTop, engine.Position{X: 0, Y: 0}, true},
		{"inside first cell", boardLeft + cellWidth - 1, boardTop, engine.Position{X: 0, Y: 0}, true},
		{"second column", boardLeft + cellWidth, boardTop, engine.Position{X: 1, Y: 0}, true},
		{"last cell", boardLeft + 3*cellWidth, boardTop + 3, engine.Position{X: 3, Y: 3}, true},
		{"left border", 0, boardTop, engine.Position{}, false},
		{"header", boardLeft, boardTop - 1, engine.Position{}, false},
		{"right of board", boardLeft + 4*cellWidth, boardTop, engine.Position{}, false},
		{"below board", boardLeft, boardTop + 4, engine.Position{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := cellAt(4, tt.x, tt.y)
			if ok != tt.ok || p != tt.expected {
				t.Errorf("cellAt(%d,%d) = %+v,%v, want %+v,%v", tt.x, tt.y, p, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestProgressDots(t *testing.T) {
	tests := []struct {
		current, total int
		expected       string
	}{
		{1, 3, "◉○○"},
		{2, 3, "●◉○"},
		{3, 3, "●●◉"},
		{5, 40, "[5/40]"},
	}

	for _, tt := range tests {
		if got := progressDots(tt.current, tt.total); !strings.Contains(got, tt.expected) {
			t.Errorf("progressDots(%d,%d) = %q, want %q", tt.current, tt.total, got, tt.expected)
		}
	}
}

func TestRenderBoard(t *testing.T) {
	state := &engine.Snapshot{
		GridSize:          3,
		PlayerPos:         engine.Position{X: 0, Y: 0},
		TargetPos:         engine.Position{X: 2, Y: 2},
		RequiredResources: 1,
		PenaltyCells:      []engine.Position{{X: 1, Y: 0}},
		ResourceCells:     []engine.Position{{X: 2, Y: 1}},
		ValidMoves:        []engine.Position{{X: 1, Y: 0}, {X: 0, Y: 1}},
	}

	board := renderBoard(state, false)
	for _, row := range []string{" P  X  . ", " o  .  * ", " .  .  T "} {
		if !strings.Contains(board, row) {
			t.Errorf("Expected row %q in board:\n%s", row, board)
		}
	}
}

func TestRenderPrompt(t *testing.T) {
	p := engine.Prompt{Kind: engine.PromptPenalty, Title: "Oops!", Message: "Lost an extra move!", Button: "OK"}

	out := renderPrompt(p, 2)
	for _, want := range []string{"Oops!", "Lost an extra move!", "OK", "1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in prompt:\n%s", want, out)
		}
	}
}
