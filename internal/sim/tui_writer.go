package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"fireops-sim/internal/config"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// statusMsg carries the latest status of one drone.
type statusMsg struct{ telemetry.StatusRow }

// responseMsg carries a response log line and its outcome.
type responseMsg struct {
	line string
	kind incident.ResponseKind
}

// faultMsg carries a fault log line.
type faultMsg struct{ line string }

// stateMsg carries a simulation state update.
type stateMsg struct{ telemetry.SimulationStateRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setChaosMsg struct{ fn func() bool }

const (
	maxLogLines      = 500
	maxDroneTableRow = 12
)

// TUIWriter renders drone status and responses using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		// quitting the UI stops the whole simulation
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements StatusWriter.
func (w *TUIWriter) Write(row telemetry.StatusRow) error {
	w.program.Send(statusMsg{row})
	return nil
}

// WriteBatch outputs multiple status rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.StatusRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteResponse implements ResponseWriter.
func (w *TUIWriter) WriteResponse(r incident.Response) error {
	line := fmt.Sprintf("%s[%s]%s %s%s%s %sdrone=%s%s %s",
		colorGray, r.Timestamp.Format(time.RFC3339), colorReset,
		responseColor(r.Kind), strings.ToUpper(string(r.Kind)), colorReset,
		colorWhite(), r.DroneID, colorReset,
		r.Incident)
	w.program.Send(responseMsg{line: line, kind: r.Kind})
	return nil
}

// WriteFault implements FaultWriter.
func (w *TUIWriter) WriteFault(f incident.FaultRecord) error {
	line := fmt.Sprintf("%s[%s]%s %sFAULT%s %skind=%s%s %sdrone=%s%s zone=%d",
		colorGray, f.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorMagenta, f.Kind, colorReset,
		colorWhite(), f.DroneID, colorReset,
		f.Incident.ZoneID)
	w.program.Send(faultMsg{line: line})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.SimulationStateRow) error {
	w.program.Send(stateMsg{SimulationStateRow: row})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetChaosToggler registers the callback bound to the chaos key.
func (w *TUIWriter) SetChaosToggler(fn func() bool) {
	w.program.Send(setChaosMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	drones       table.Model
	vp           viewport.Model
	logs         []string
	status       map[string]telemetry.StatusRow
	state        telemetry.SimulationStateRow
	outcomes     map[incident.ResponseKind]int
	faults       int
	chaos        func() bool
	chaosOn      bool
	admin        bool
	wrap         bool
	autoscroll   bool
	summary      bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 12},
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 12},
	}
	rows := []table.Row{
		{"Time Unit", cfg.TimeUnit.String(), "Fault Mode", cfg.Faults.Mode},
		{"Refill Delay", fmt.Sprintf("%d", cfg.RefillDelay), "Recovery Delay", fmt.Sprintf("%d", cfg.RecoveryDelay)},
		{"Drones", fmt.Sprintf("%d", cfg.DroneCount()), "Max Retries", fmt.Sprintf("%d", cfg.MaxRetries)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	d := table.New(table.WithColumns([]table.Column{
		{Title: "Drone", Width: 22},
		{Title: "State", Width: 16},
		{Title: "Volume", Width: 11},
		{Title: "Zone", Width: 5},
		{Title: "Tasks", Width: 6},
		{Title: "Faults", Width: 6},
		{Title: "Status", Width: 10},
	}), table.WithHeight(2))
	m := tuiModel{
		cfg:        cfg,
		table:      t,
		drones:     d,
		vp:         viewport.New(0, 0),
		status:     make(map[string]telemetry.StatusRow),
		outcomes:   make(map[incident.ResponseKind]int),
		chaosOn:    cfg.Faults.Mode != "none" && !cfg.Faults.Disabled,
		autoscroll: true,
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.drones.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "c":
			if m.chaos != nil {
				m.chaosOn = m.chaos()
			}
			return m, nil
		case "?", "h":
			m.help = true
			m.updateViewportHeight()
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case logMsg:
		m.appendLog(msg.line)
	case responseMsg:
		m.outcomes[msg.kind]++
		m.appendLog(msg.line)
	case faultMsg:
		m.faults++
		m.appendLog(msg.line)
	case statusMsg:
		m.status[msg.DroneID] = msg.StatusRow
		m.refreshDrones()
		m.updateViewportHeight()
	case stateMsg:
		m.state = msg.SimulationStateRow
		m.chaosOn = msg.ChaosMode
	case adminMsg:
		m.admin = msg.active
	case setChaosMsg:
		m.chaos = msg.fn
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *tuiModel) refreshDrones() {
	ids := make([]string, 0, len(m.status))
	for id := range m.status {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		s := m.status[id]
		zone := "-"
		if s.IncidentID != "" {
			zone = fmt.Sprintf("%d", s.ZoneID)
		}
		rows = append(rows, table.Row{
			s.DroneID, s.State, fmt.Sprintf("%.1f/%.1f", s.Volume, s.Capacity), zone,
			fmt.Sprintf("%d", s.Tasks), fmt.Sprintf("%d", s.Faults), s.Status,
		})
	}
	m.drones.SetRows(rows)
	m.drones.SetHeight(min(len(rows), maxDroneTableRow) + 1)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	extra := 0
	if m.summary {
		extra += lipgloss.Height(m.renderSummary())
	}
	if m.help {
		extra += lipgloss.Height(m.renderHelp())
	}
	h := m.height - m.headerHeight - lipgloss.Height(m.drones.View()) - bottomHeight - extra
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	m.vp.SetContent(m.renderLogs())
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderLogs() string {
	if !m.wrap || m.vp.Width <= 0 {
		return strings.Join(m.logs, "\n")
	}
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		lines = append(lines, wordwrap.String(l, m.vp.Width))
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) View() string {
	parts := []string{m.header, m.drones.View(), m.vp.View()}
	if m.summary {
		parts = append(parts, m.renderSummary())
	}
	if m.help {
		parts = append(parts, m.renderHelp())
	}
	parts = append(parts, m.renderBottom())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m tuiModel) renderHeader() string {
	return m.table.View()
}

func (m tuiModel) renderSummary() string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	body := fmt.Sprintf("resolved %d  failed %d  refill %d  faults %d\nbacklog %d  outstanding %d  retried %d  idle drones %d",
		m.outcomes[incident.ResponseSuccess], m.outcomes[incident.ResponseFailure],
		m.outcomes[incident.ResponseRefillRequired], m.faults,
		m.state.Backlog, m.state.Outstanding, m.state.Retried, m.state.IdleDrones)
	return style.Render(body)
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("%s admin  %s chaos  %s wrap  %s scroll  %s summary  %s help  q quit",
			indicator(m.admin), indicator(m.chaosOn), indicator(m.wrap),
			indicator(m.autoscroll), indicator(m.summary), indicator(m.help)))
}

func (m tuiModel) renderHelp() string {
	style := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	return style.Render(strings.Join([]string{
		"c  toggle fault injection",
		"w  toggle line wrap",
		"s  toggle autoscroll",
		"t  toggle summary",
		"h  close help",
		"q  quit",
	}, "\n"))
}
