// Package tui is the terminal front end of Resource Rush: a Bubble Tea
// model that renders a local game engine and turns keys and mouse clicks
// into moves. The same model is served over SSH by SSHServer.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/service"
)

const scoreSaveTimeout = 5 * time.Second

// Options configures a game model
type Options struct {
	// ConfigID is stored with finished runs
	ConfigID string

	// Player names the session on the score board
	Player string

	// Scores records finished runs; nil disables recording
	Scores service.ScoreBoard
}

// runSavedMsg reports the result of recording a finished run
type runSavedMsg struct {
	run *service.RunRecord
	err error
}

// Model is the Bubble Tea model of one game
type Model struct {
	engine   *engine.GameEngine
	opts     Options
	keys     KeyMap
	help     help.Model
	runID    string
	status   string
	err      error
	width    int
	height   int
	quitting bool
}

// NewModel creates a model over an engine
func NewModel(eng *engine.GameEngine, opts Options) Model {
	if opts.Player == "" {
		opts.Player = "local"
	}
	return Model{
		engine: eng,
		opts:   opts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		runID:  uuid.NewString(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case runSavedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("score not saved: %w", msg.err)
		} else {
			m.status = fmt.Sprintf("Run saved: level %d, %d moves", msg.run.Level, msg.run.Moves)
		}
		return m, nil
	}
	return m, nil
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.confirm()
	case key.Matches(msg, m.keys.NewGame):
		return m.newGame()
	}

	if dir, ok := m.keys.Direction(msg); ok {
		return m.apply(m.engine.AttemptMove(dir))
	}
	return m, nil
}

// handleMouse moves to an adjacent cell on left click
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	if m.engine.IsBusy() {
		return m.confirm()
	}

	p, ok := cellAt(m.engine.GetConfig().GridSize, msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	return m.apply(m.engine.ApplyMove(p.X, p.Y))
}

// apply records the result of a move attempt and saves the run when the
// move ended it
func (m Model) apply(outcome engine.MoveOutcome) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""

	if !outcome.Accepted {
		switch outcome.Rejected {
		case engine.RejectBusy:
			m.status = "Press enter to continue"
		case engine.RejectFinished:
			m.status = "Press r to play again"
		case engine.RejectInvalidMove:
			m.status = "You can't go that way"
		}
		return m, nil
	}

	if outcome.Victory || outcome.GameOver {
		run := m.finishRun(outcome)
		return m, m.saveRun(run)
	}
	return m, nil
}

// finishRun builds the score board record of the run that just ended and
// starts a new run id
func (m *Model) finishRun(outcome engine.MoveOutcome) *service.RunRecord {
	state := m.engine.Snapshot()
	run := &service.RunRecord{
		RunID:      m.runID,
		SessionID:  m.opts.Player,
		ConfigID:   m.opts.ConfigID,
		Outcome:    service.OutcomeGameOver,
		Level:      state.CurrentLevel,
		MaxLevels:  state.MaxLevels,
		Resources:  state.RunResources,
		Moves:      state.RunMoves,
		Lives:      state.Lives,
		FinishedAt: time.Now(),
	}
	if outcome.Victory {
		run.Outcome = service.OutcomeVictory
	}

	m.runID = uuid.NewString()
	return run
}

func (m Model) saveRun(run *service.RunRecord) tea.Cmd {
	scores := m.opts.Scores
	if scores == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scoreSaveTimeout)
		defer cancel()
		return runSavedMsg{run: run, err: scores.SaveRun(ctx, run)}
	}
}

// confirm acknowledges the oldest pending prompt
func (m Model) confirm() (tea.Model, tea.Cmd) {
	prompt, err := m.engine.ConfirmAndContinue()
	if err != nil {
		m.err = err
		return m, nil
	}
	if prompt != nil {
		m.status = ""
	}
	return m, nil
}

// newGame starts over at level 1 with a new run
func (m Model) newGame() (tea.Model, tea.Cmd) {
	if _, err := m.engine.Reset(); err != nil {
		m.err = err
		return m, nil
	}
	m.runID = uuid.NewString()
	m.status = "New game"
	m.err = nil
	return m, nil
}

// View renders the game screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := m.engine.Snapshot()
	prompts := state.PendingPrompts

	title := titleStyle.Render("RESOURCE RUSH")
	if state.ConfigName != "" {
		title += hudLabelStyle.Render("  " + state.ConfigName)
	}

	status := messageStyle.Render(state.Message)
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.status != "":
		status = messageStyle.Render(m.status)
	}

	sections := []string{
		title,
		renderHUD(state),
		status,
		renderBoard(state, len(prompts) > 0),
	}
	if len(prompts) > 0 {
		sections = append(sections, renderPrompt(prompts[0], len(prompts)))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RunID returns the id of the run in progress
func (m Model) RunID() string {
	return m.runID
}

// Run starts a Bubble Tea program for the model on the local terminal
func Run(m Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
