// Package dashboard is the terminal UI for a single monitored host. It reads
// everything it draws from a monitor engine and turns key presses into
// engine control calls; it never fetches on its own.
package dashboard

import (
	stderrors "errors"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Source is the engine surface the dashboard reads and controls.
type Source interface {
	Status() monitor.Status
	Series(kind monitor.Kind, entity, channel string) []monitor.Point
	Channels(kind monitor.Kind, entity string) []string
	Entities(kind monitor.Kind) []string
	SelectHost(name string, f monitor.Fetcher) error
	SetWindow(w monitor.Window) error
	SetResolution(r monitor.Resolution) error
	SetRefreshInterval(d time.Duration) error
	TriggerRefresh() bool
}

var _ Source = (*monitor.Engine)(nil)

// Connector builds a fetcher for a configured host name.
type Connector func(host string) (monitor.Fetcher, error)

// LayoutMode is picked from the terminal width.
type LayoutMode int

const (
	// LayoutNarrow stacks cards in one column.
	LayoutNarrow LayoutMode = iota
	// LayoutWide places cards two per row.
	LayoutWide
)

// BreakpointWide is the width at which cards go two per row.
const BreakpointWide = 120

// DefaultFrameInterval is how often the view re-reads the engine.
const DefaultFrameInterval = 500 * time.Millisecond

// Options configures a Model.
type Options struct {
	// Hosts are the configured host names, in display order.
	Hosts []string
	// Initial is selected on start. Empty means the first of Hosts.
	Initial string
	Connect Connector

	FrameInterval time.Duration
	// Now is a clock hook for tests.
	Now func() time.Time
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	src     Source
	connect Connector
	hosts   []string
	hostIdx int
	// hostSeq counts host switches; only the newest switch may land.
	hostSeq int

	// focus indexes monitor.AllKinds.
	focus int
	// entityIdx is the selected entity per kind, by position in Entities.
	entityIdx map[monitor.Kind]int

	status     monitor.Status
	notice     string
	frame      int
	frameEvery time.Duration
	now        func() time.Time

	width    int
	height   int
	viewMode ViewMode
	showHelp bool
	quitting bool

	detailViewport viewport.Model
	viewportReady  bool
}

// frameMsg re-reads engine state.
type frameMsg time.Time

// hostSelectedMsg carries a connected fetcher for the switch numbered seq.
type hostSelectedMsg struct {
	host    string
	seq     int
	fetcher monitor.Fetcher
	err     error
}

// NewModel creates a dashboard over src.
func NewModel(src Source, opts Options) Model {
	every := opts.FrameInterval
	if every <= 0 {
		every = DefaultFrameInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	m := Model{
		src:        src,
		connect:    opts.Connect,
		hosts:      append([]string(nil), opts.Hosts...),
		entityIdx:  make(map[monitor.Kind]int),
		frameEvery: every,
		now:        now,
		status:     src.Status(),
	}
	for i, h := range m.hosts {
		if h == opts.Initial {
			m.hostIdx = i
		}
	}
	return m
}

// Init selects the initial host and starts the frame timer.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.frameCmd()}
	if host := m.SelectedHost(); host != "" {
		cmds = append(cmds, m.selectHostCmd(host))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			m.refreshStatus()
			return m, cmd
		}
		if m.viewMode == ViewDetail && m.viewportReady {
			var cmd tea.Cmd
			m.detailViewport, cmd = m.detailViewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		const headerHeight, footerHeight = 3, 2
		vh := m.height - headerHeight - footerHeight
		if vh < 1 {
			vh = 1
		}
		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, vh)
			m.detailViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = vh
		}
		if m.viewMode == ViewDetail {
			m.updateDetailViewportContent()
		}

	case frameMsg:
		m.frame = (m.frame + 1) % 10000
		m.refreshStatus()
		return m, m.frameCmd()

	case hostSelectedMsg:
		if msg.seq != m.hostSeq {
			// A newer switch was requested while this one connected.
			return m, nil
		}
		err := msg.err
		if err == nil {
			err = m.src.SelectHost(msg.host, msg.fetcher)
		}
		if err != nil {
			m.notice = noticeText(err)
		} else {
			m.notice = ""
			m.entityIdx = make(map[monitor.Kind]int)
		}
		m.refreshStatus()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frameEvery, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// selectHostCmd connects off the UI goroutine, since building a tunnel can
// block. Update hands the fetcher to the engine if no newer switch was made.
func (m Model) selectHostCmd(host string) tea.Cmd {
	connect, seq := m.connect, m.hostSeq
	return func() tea.Msg {
		if connect == nil {
			return hostSelectedMsg{host: host, seq: seq, err: errors.New(errors.ErrConfig,
				"No way to connect to hosts", "")}
		}
		f, err := connect(host)
		return hostSelectedMsg{host: host, seq: seq, fetcher: f, err: err}
	}
}

func (m *Model) refreshStatus() {
	m.status = m.src.Status()
	if m.viewMode == ViewDetail {
		m.updateDetailViewportContent()
	}
}

// SelectedHost returns the host chosen in the UI, which may differ briefly
// from the engine's while a switch is connecting.
func (m Model) SelectedHost() string {
	if m.hostIdx >= 0 && m.hostIdx < len(m.hosts) {
		return m.hosts[m.hostIdx]
	}
	return ""
}

// FocusedKind returns the kind whose card has focus.
func (m Model) FocusedKind() monitor.Kind {
	return monitor.AllKinds[m.focus]
}

// SelectedEntity returns the entity shown for kind: the user's pick, or the
// host-wide entity when the kind has one, or the first entity.
func (m Model) SelectedEntity(kind monitor.Kind) string {
	entities := m.src.Entities(kind)
	if len(entities) == 0 {
		return kind.SingletonEntity()
	}
	if idx, ok := m.entityIdx[kind]; ok && idx < len(entities) {
		return entities[idx]
	}
	if single := kind.SingletonEntity(); single != "" {
		for _, e := range entities {
			if e == single {
				return e
			}
		}
	}
	return entities[0]
}

// Notice returns the last control message shown in the footer.
func (m Model) Notice() string {
	return m.notice
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	if m.width >= BreakpointWide {
		return LayoutWide
	}
	return LayoutNarrow
}

// SecondsSinceUpdate returns how long ago the last cycle finished, or -1
// before the first one.
func (m Model) SecondsSinceUpdate() int {
	if m.status.LastCycle.IsZero() {
		return -1
	}
	s := int(m.now().Sub(m.status.LastCycle).Seconds())
	if s < 0 {
		return 0
	}
	return s
}

// noticeText flattens an error for the one-line footer.
func noticeText(err error) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return hwErr.Short()
	}
	return err.Error()
}
