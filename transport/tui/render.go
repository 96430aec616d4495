package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/resource-rush/game/engine"
)

// Board layout. The board is drawn below the header lines with a one
// character border, each cell cellWidth columns wide.
const (
	headerLines = 3
	boardTop    = headerLines + 1
	boardLeft   = 1
	cellWidth   = 3

	// Above this many levels the HUD shows a counter instead of dots
	maxProgressDots = 20
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87"))

	hudLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hudValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	livesStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4040"))
	messageStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("250"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	dotDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	dotCurrentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	dotTodoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	dimBoardStyle = boardStyle.BorderForeground(lipgloss.Color("240"))

	validBackground = lipgloss.Color("22")

	emptyCellStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	validCellStyle    = lipgloss.NewStyle().Background(validBackground).Foreground(lipgloss.Color("#04B575"))
	playerCellStyle   = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("#3C71F7")).Foreground(lipgloss.Color("#FFFFFF"))
	lockedTargetStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	openTargetStyle   = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("#04B575")).Foreground(lipgloss.Color("#000000"))
	penaltyCellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7FF"))
	resourceCellStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFD700")).
			Padding(0, 2)
	promptTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4500"))
	promptButtonStyle = lipgloss.NewStyle().
				Bold(true).
				Background(lipgloss.Color("#FFD700")).
				Foreground(lipgloss.Color("#000000")).
				Padding(0, 1)
)

// progressDots renders one dot per level: cleared, current and to go
func progressDots(current, total int) string {
	if total > maxProgressDots {
		return dotCurrentStyle.Render(fmt.Sprintf("[%d/%d]", current, total))
	}

	var b strings.Builder
	for level := 1; level <= total; level++ {
		switch {
		case level < current:
			b.WriteString(dotDoneStyle.Render("●"))
		case level == current:
			b.WriteString(dotCurrentStyle.Render("◉"))
		default:
			b.WriteString(dotTodoStyle.Render("○"))
		}
	}
	return b.String()
}

func hudField(label, value string) string {
	return hudLabelStyle.Render(label+" ") + hudValueStyle.Render(value)
}

// renderHUD renders the level, progress, lives, moves and resource counters
func renderHUD(state *engine.Snapshot) string {
	lives := livesStyle.Render(strings.Repeat("♥", max(state.Lives, 0)))

	return strings.Join([]string{
		hudField("Level", fmt.Sprintf("%d of %d", state.CurrentLevel, state.MaxLevels)),
		progressDots(state.CurrentLevel, state.MaxLevels),
		hudLabelStyle.Render("Lives ") + lives,
		hudField("Moves", fmt.Sprintf("%d", state.Moves)),
		hudField("Collected", fmt.Sprintf("%d/%d", state.CollectedResources, state.RequiredResources)),
	}, "  ")
}

// renderCell renders one board cell. Legal destinations are highlighted
// unless something else occupies the cell.
func renderCell(state *engine.Snapshot, p engine.Position, valid map[engine.Position]bool) string {
	switch {
	case p == state.PlayerPos:
		return playerCellStyle.Render(" P ")
	case containsPosition(state.PenaltyCells, p):
		if valid[p] {
			return penaltyCellStyle.Background(validBackground).Render(" X ")
		}
		return penaltyCellStyle.Render(" X ")
	case containsPosition(state.ResourceCells, p):
		if valid[p] {
			return resourceCellStyle.Background(validBackground).Render(" * ")
		}
		return resourceCellStyle.Render(" * ")
	case p == state.TargetPos:
		if state.CollectedResources >= state.RequiredResources {
			return openTargetStyle.Render(" T ")
		}
		if valid[p] {
			return lockedTargetStyle.Background(validBackground).Render(" T ")
		}
		return lockedTargetStyle.Render(" T ")
	case valid[p]:
		return validCellStyle.Render(" o ")
	}
	return emptyCellStyle.Render(" . ")
}

// renderBoard renders the grid inside a border. dim is used while a prompt
// is open.
func renderBoard(state *engine.Snapshot, dim bool) string {
	valid := make(map[engine.Position]bool, len(state.ValidMoves))
	for _, p := range state.ValidMoves {
		valid[p] = true
	}

	rows := make([]string, state.GridSize)
	for y := 0; y < state.GridSize; y++ {
		var row strings.Builder
		for x := 0; x < state.GridSize; x++ {
			row.WriteString(renderCell(state, engine.Position{X: x, Y: y}, valid))
		}
		rows[y] = row.String()
	}

	style := boardStyle
	if dim {
		style = dimBoardStyle
	}
	return style.Render(strings.Join(rows, "\n"))
}

// renderPrompt renders a modal prompt box
func renderPrompt(p engine.Prompt, remaining int) string {
	lines := []string{
		promptTitleStyle.Render(p.Title),
		"",
		p.Message,
		"",
		promptButtonStyle.Render(p.Button) + hudLabelStyle.Render("  enter"),
	}
	if remaining > 1 {
		lines = append(lines, hudLabelStyle.Render(fmt.Sprintf("%d more", remaining-1)))
	}
	return promptStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// cellAt maps a terminal coordinate to a board cell
func cellAt(gridSize, x, y int) (engine.Position, bool) {
	if x < boardLeft || y < boardTop {
		return engine.Position{}, false
	}
	p := engine.Position{X: (x - boardLeft) / cellWidth, Y: y - boardTop}
	if p.X >= gridSize || p.Y >= gridSize {
		return engine.Position{}, false
	}
	return p, true
}

func containsPosition(positions []engine.Position, p engine.Position) bool {
	for _, q := range positions {
		if q == p {
			return true
		}
	}
	return false
}
