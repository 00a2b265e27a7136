// Package ui is the terminal front end of a dispatch run: an optional group
// picker followed by a live progress view.
package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/danhigham/groupcast/internal/dispatch"
	"github.com/danhigham/groupcast/internal/state"
)

// ErrAborted is returned when the user quits the picker without sending.
var ErrAborted = errors.New("aborted before sending")

// Runner runs the send loop. It is implemented by *dispatch.Engine.
type Runner interface {
	Run(ctx context.Context, req dispatch.Request, onEvent func(dispatch.Event)) (dispatch.Counters, error)
	Stop()
}

type phase int

const (
	phasePick phase = iota
	phaseRun
	phaseDone
)

// Model is the root Bubble Tea model.
type Model struct {
	picker  GroupListModel
	log     LogViewModel
	status  statusModel
	help    HelpModel
	summary SummaryModel

	ctx     context.Context
	store   *state.Store
	runner  Runner
	req     dispatch.Request
	send    func(tea.Msg)
	gate    *runGate

	phase    phase
	stopping bool
	result   *DoneMsg
	width    int
	height   int
}

// NewModel creates the root model. When req has no targets the user picks
// them from the store's groups first.
func NewModel(ctx context.Context, store *state.Store, runner Runner, req dispatch.Request, userName string, send func(tea.Msg)) Model {
	m := Model{
		picker:  NewGroupListModel(),
		log:     NewLogViewModel(req.Message, req.Attachment),
		status:  newStatusModel(userName),
		ctx:     ctx,
		store:   store,
		runner:  runner,
		req:     req,
		send:    send,
		gate:    newRunGate(),
	}
	if len(req.Targets) > 0 {
		m.phase = phaseRun
		m.status.running = true
		m.status.text = "Sending"
		m.status.targets = len(req.Targets)
	} else {
		m.picker = m.picker.WithGroups(store.Groups(), store.SelectedIDs())
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{clockTick()}
	if m.phase == phaseRun {
		cmds = append(cmds, m.start())
	}
	return tea.Batch(cmds...)
}

func clockTick() tea.Cmd {
	return tea.Tick(30*time.Second, func(time.Time) tea.Msg { return clockTickMsg{} })
}

// runGate hands the result of a run to App.Run when the program quits
// before the run is over, and keeps a run from starting after that.
type runGate struct {
	mu      sync.Mutex
	started bool
	closed  bool
	result  chan DoneMsg
}

func newRunGate() *runGate {
	return &runGate{result: make(chan DoneMsg, 1)}
}

func (g *runGate) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.started = true
	return true
}

// close prevents new runs and reports whether one was started.
func (g *runGate) close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return g.started
}

// start runs the engine. Events are pushed into the program as they happen.
func (m Model) start() tea.Cmd {
	ctx, runner, req, send, gate := m.ctx, m.runner, m.req, m.send, m.gate
	return func() tea.Msg {
		if !gate.begin() {
			return nil
		}
		c, err := runner.Run(ctx, req, func(ev dispatch.Event) {
			send(EventMsg{Event: ev})
		})
		d := DoneMsg{Counters: c, Err: err}
		gate.result <- d
		return d
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.distributeSize()
		return m, nil

	case clockTickMsg:
		return m, clockTick()

	case groupsChosenMsg:
		m.store.Select(msg.ids)
		m.req.Targets = m.store.Selected()
		if len(m.req.Targets) == 0 {
			return m, nil
		}
		m.phase = phaseRun
		m.status.running = true
		m.status.text = "Sending"
		m.status.targets = len(m.req.Targets)
		return m, m.start()

	case EventMsg:
		// A stop pressed before the engine was running was a no-op; once
		// events flow the engine is running and the stop is repeated.
		if m.stopping {
			m.runner.Stop()
		}
		m.log = m.log.Append(time.Now(), msg.Event)
		m.status = m.status.Observe(msg.Event)
		return m, nil

	case DoneMsg:
		m.phase = phaseDone
		m.result = &msg
		m.status.running = false
		m.status.counters = msg.Counters
		m.status.text = "Done"
		if m.stopping || m.ctx.Err() != nil {
			m.status.text = "Stopped"
		}
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		m.summary = m.summary.Show(msg.Counters, m.stopping, msg.Err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if m.phase == phaseRun && !m.stopping {
			return m.stop(), nil
		}
		return m, tea.Quit
	}

	if m.phase == phaseDone {
		return m, tea.Quit
	}

	if m.help.IsVisible() {
		if key == "?" || key == "esc" {
			m.help = m.help.Toggle()
		}
		return m, nil
	}

	filtering := m.phase == phasePick && m.picker.Filtering()
	if !filtering {
		switch key {
		case "?":
			m.help = m.help.Toggle()
			return m, nil
		case "q":
			if m.phase == phasePick {
				return m, tea.Quit
			}
			return m.stop(), nil
		case "s":
			if m.phase == phaseRun {
				return m.stop(), nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.phase {
	case phasePick:
		m.picker, cmd = m.picker.Update(msg)
	case phaseRun:
		m.log, cmd = m.log.Update(msg)
	}
	return m, cmd
}

func (m Model) stop() Model {
	if m.stopping {
		return m
	}
	m.stopping = true
	m.status.text = "Stopping"
	m.runner.Stop()
	return m
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	var main string
	if m.phase == phasePick {
		main = m.picker.View()
	} else {
		main = m.log.View()
	}
	full := lipgloss.JoinVertical(lipgloss.Left, main, m.status.View())

	mainContent := lipgloss.NewStyle().
		MaxWidth(m.width).
		MaxHeight(m.height).
		Render(full)

	var overlay string
	var x, y int
	switch {
	case m.help.IsVisible():
		overlay = m.help.View()
		x, y = m.help.BoxOffset()
	case m.summary.IsVisible():
		overlay = m.summary.View()
		x, y = m.summary.BoxOffset()
	}

	if overlay == "" {
		v.SetContent(mainContent)
		return v
	}
	bg := lipgloss.NewLayer(mainContent)
	fg := lipgloss.NewLayer(overlay).X(x).Y(y).Z(1)
	v.SetContent(lipgloss.NewCompositor(bg, fg).Render())
	return v
}

func (m Model) distributeSize() Model {
	// One row for the status bar.
	contentHeight := m.height - 1
	if contentHeight < 1 {
		contentHeight = 1
	}

	m.picker = m.picker.SetSize(m.width, contentHeight)
	m.log = m.log.SetSize(m.width, contentHeight)
	m.status = m.status.SetWidth(m.width)
	m.help = m.help.SetSize(m.width, m.height)
	m.summary = m.summary.SetSize(m.width, m.height)
	return m
}

// App wraps the Bubble Tea program for external use.
type App struct {
	ctx     context.Context
	program *tea.Program
	runner  Runner
	gate    *runGate
}

// NewApp creates a new App ready to Run. Cancelling ctx stops the run and
// quits the program.
func NewApp(ctx context.Context, store *state.Store, runner Runner, req dispatch.Request, userName string) *App {
	a := &App{ctx: ctx, runner: runner}
	model := NewModel(ctx, store, runner, req, userName, a.Send)
	a.gate = model.gate
	a.program = tea.NewProgram(model, tea.WithContext(ctx))
	return a
}

// Run starts the Bubble Tea event loop and blocks until the program quits
// and the run, if one was started, has finished.
func (a *App) Run() (dispatch.Counters, error) {
	final, err := a.program.Run()
	if a.ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	started := a.gate.close()

	if m, ok := final.(Model); ok && m.result != nil {
		return m.result.Counters, errors.Join(err, m.result.Err)
	}
	if !started {
		if err == nil {
			err = ErrAborted
		}
		return dispatch.Counters{}, err
	}

	// Quit while the engine was still running.
	a.runner.Stop()
	d := <-a.gate.result
	return d.Counters, errors.Join(err, d.Err)
}

// Send delivers a message into the event loop. It blocks until the message
// is accepted so events keep their order.
func (a *App) Send(msg tea.Msg) {
	a.program.Send(msg)
}
