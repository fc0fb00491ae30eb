// Package tui provides the interactive terminal client for the machine
// catalog: browsing, filtering, spawning, and flag submission.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackline/labtui/internal/catalog"
)

// inputMode selects how keyboard events are interpreted.
type inputMode int

const (
	modeBrowse inputMode = iota
	modeFlag             // Composing a flag for the active machine
)

// Options configures the TUI.
type Options struct {
	Version         string
	RefreshInterval time.Duration // 0 disables periodic refresh
	Logger          *slog.Logger
}

// Model is the main TUI model following the Elm architecture. All state
// mutation happens inside Update, which bubbletea runs on a single
// goroutine: user input dispatch and async completion application can never
// interleave partially.
type Model struct {
	vm  viewModel
	svc catalog.Service

	version         string
	refreshInterval time.Duration
	logger          *slog.Logger

	mode      inputMode
	flagInput textinput.Model

	// One pending token per action class. A dispatch while the class is
	// pending is rejected with a busy status, never queued.
	refreshing bool
	spawning   bool
	submitting bool

	// Monotonic request IDs so stale completions are ignored.
	refreshID uint64
	spawnID   uint64
	submitID  uint64

	width    int
	height   int
	pageSize int

	loading      bool // Initial load in progress
	status       string
	statusIsErr  bool
	spinnerFrame int
	quitting     bool
}

// New creates the TUI model.
func New(svc catalog.Service, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "flag"
	ti.CharLimit = 128
	ti.Width = 40

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return Model{
		vm:              viewModel{sort: sortDifficulty},
		svc:             svc,
		version:         opts.Version,
		refreshInterval: opts.RefreshInterval,
		logger:          logger,
		flagInput:       ti,
		pageSize:        20,
		loading:         true,
		refreshing:      true, // Init dispatches the initial refresh
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(), spinnerTick()}
	if m.refreshInterval > 0 {
		cmds = append(cmds, refreshTick(m.refreshInterval))
	}
	return tea.Batch(cmds...)
}

// Completion messages. Each carries the request ID captured at dispatch so
// completions from an abandoned generation are dropped.

type machinesLoadedMsg struct {
	machines  []catalog.Machine
	err       error
	requestID uint64
}

type spawnDoneMsg struct {
	info      *catalog.ActiveMachine
	name      string
	err       error
	requestID uint64
}

type flagDoneMsg struct {
	machineID int64
	result    *catalog.FlagResult
	err       error
	requestID uint64
}

// refreshTickMsg fires the periodic background refresh.
type refreshTickMsg struct{}

// spinnerTickMsg advances the pending-action spinner.
type spinnerTickMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func refreshTick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// refreshCmd fetches the machine list off the render path.
func (m Model) refreshCmd() tea.Cmd {
	requestID := m.refreshID
	return func() tea.Msg {
		machines, err := m.svc.ListMachines(context.Background())
		return machinesLoadedMsg{machines: machines, err: err, requestID: requestID}
	}
}

// spawnCmd requests the service start the machine.
func (m Model) spawnCmd(machine catalog.Machine) tea.Cmd {
	requestID := m.spawnID
	return func() tea.Msg {
		info, err := m.svc.Spawn(context.Background(), machine.ID)
		return spawnDoneMsg{info: info, name: machine.Name, err: err, requestID: requestID}
	}
}

// submitFlagCmd submits the composed flag for the active machine.
func (m Model) submitFlagCmd(machineID int64, flag string) tea.Cmd {
	requestID := m.submitID
	return func() tea.Msg {
		result, err := m.svc.SubmitFlag(context.Background(), machineID, flag)
		return flagDoneMsg{machineID: machineID, result: result, err: err, requestID: requestID}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Title, column header, filter/sort line, active panel, status: 6 rows.
		m.pageSize = m.height - 6
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		return m, nil

	case machinesLoadedMsg:
		if msg.requestID != m.refreshID {
			m.logger.Debug("dropping stale refresh completion",
				"got", msg.requestID, "want", m.refreshID)
			return m, nil
		}
		m.refreshing = false
		m.loading = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("refresh failed: %v", msg.err))
			return m, nil
		}
		if dropped := m.vm.replaceMachines(msg.machines); dropped > 0 {
			m.logger.Warn("payload listed multiple active machines, extra flags cleared",
				"dropped", dropped)
		}
		m.setStatus(fmt.Sprintf("%d machines loaded", len(msg.machines)))
		return m, nil

	case spawnDoneMsg:
		if msg.requestID != m.spawnID {
			m.logger.Debug("dropping stale spawn completion",
				"got", msg.requestID, "want", m.spawnID)
			return m, nil
		}
		m.spawning = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("spawn %s failed: %v", msg.name, msg.err))
			return m, nil
		}
		if m.vm.applySpawn(*msg.info) {
			if msg.info.IP != "" {
				m.setStatus(fmt.Sprintf("spawned %s at %s", msg.name, msg.info.IP))
			} else {
				m.setStatus(fmt.Sprintf("spawned %s, address pending", msg.name))
			}
		} else {
			// The machine vanished from a refresh that finished in between.
			m.setStatus(fmt.Sprintf("spawned %s, but it is no longer listed", msg.name))
		}
		return m, nil

	case flagDoneMsg:
		if msg.requestID != m.submitID {
			m.logger.Debug("dropping stale flag completion",
				"got", msg.requestID, "want", m.submitID)
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("flag submission failed: %v", msg.err))
			return m, nil
		}
		m.vm.applyFlag(msg.machineID, *msg.result)
		switch msg.result.Outcome {
		case catalog.FlagAccepted:
			if msg.result.OwnType != "" {
				m.setStatus(fmt.Sprintf("flag accepted (%s own)", msg.result.OwnType))
			} else {
				m.setStatus("flag accepted")
			}
		case catalog.FlagIncorrect:
			m.setError("incorrect flag")
		case catalog.FlagAlreadyOwned:
			m.setStatus("already owned")
		}
		return m, nil

	case refreshTickMsg:
		var cmd tea.Cmd
		// Skip silently when a manual refresh is already in flight.
		if !m.refreshing {
			m.refreshing = true
			m.refreshID++
			cmd = m.refreshCmd()
		}
		return m, tea.Batch(cmd, refreshTick(m.refreshInterval))

	case spinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTick()
	}

	return m, nil
}

// pending reports whether any action class is in flight.
func (m Model) pending() bool {
	return m.refreshing || m.spawning || m.submitting
}

// startRefresh dispatches a Refresh unless one is already pending.
func (m Model) startRefresh() (Model, tea.Cmd) {
	if m.refreshing {
		m.setError("busy: refresh already in progress")
		return m, nil
	}
	m.refreshing = true
	m.refreshID++
	m.setStatus("refreshing...")
	return m, m.refreshCmd()
}

// startSpawn dispatches a Spawn for the selected machine unless one is
// already pending or there is nothing to spawn.
func (m Model) startSpawn() (Model, tea.Cmd) {
	machine, ok := m.vm.selected()
	if !ok {
		m.setError("no machine selected")
		return m, nil
	}
	if machine.Active {
		m.setStatus(fmt.Sprintf("%s is already active", machine.Name))
		return m, nil
	}
	if m.spawning {
		m.setError("busy: spawn already in progress")
		return m, nil
	}
	m.spawning = true
	m.spawnID++
	m.setStatus(fmt.Sprintf("spawning %s...", machine.Name))
	return m, m.spawnCmd(machine)
}

// startSubmitFlag validates the composed buffer and dispatches a SubmitFlag.
// On dispatch the model returns to browse mode immediately; the outcome
// arrives asynchronously as a status message.
func (m Model) startSubmitFlag() (Model, tea.Cmd) {
	flag := strings.TrimSpace(m.flagInput.Value())
	if flag == "" {
		m.setError("empty flag")
		return m, nil
	}
	active, ok := m.vm.activeMachine()
	if !ok {
		m.setError("no active machine")
		m.exitFlagMode()
		return m, nil
	}
	if m.submitting {
		m.setError("busy: flag submission already in progress")
		return m, nil
	}
	m.submitting = true
	m.submitID++
	m.exitFlagMode()
	m.setStatus("submitting flag...")
	return m, m.submitFlagCmd(active.ID, flag)
}

// canEnterFlagMode reports whether flag composition is allowed: an active
// machine must exist with at least one objective left to submit.
func (m Model) canEnterFlagMode() bool {
	active, ok := m.vm.activeMachine()
	if !ok {
		return false
	}
	for _, machine := range m.vm.machines {
		if machine.ID == active.ID {
			return !machine.UserOwned || !machine.RootOwned
		}
	}
	return false
}

// enterFlagMode switches to flag composition with an empty buffer.
func (m *Model) enterFlagMode() {
	m.mode = modeFlag
	m.flagInput.SetValue("")
	m.flagInput.Focus()
}

// exitFlagMode returns to browse mode, discarding the buffer.
func (m *Model) exitFlagMode() {
	m.mode = modeBrowse
	m.flagInput.SetValue("")
	m.flagInput.Blur()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusIsErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusIsErr = true
}
