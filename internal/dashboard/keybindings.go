package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewCards ViewMode = iota
	ViewDetail
)

// Key bindings as constants for consistency.
const (
	KeyQuit          = "q"
	KeyQuitAlt       = "ctrl+c"
	KeyRefresh       = "r"
	KeyWindow        = "w"
	KeyResolution    = "s"
	KeyInterval      = "i"
	KeyHost          = "h"
	KeyNextCard      = "tab"
	KeyNextCardAlt   = "right"
	KeyPrevCard      = "shift+tab"
	KeyPrevCardAlt   = "left"
	KeyEntityNext    = "j"
	KeyEntityNextAlt = "down"
	KeyEntityPrev    = "k"
	KeyEntityPrevAlt = "up"
	KeyExpand        = "enter"
	KeyCollapse      = "esc"
	KeyToggleHelp    = "?"
)

// HandleKeyMsg applies a key press. Returns true if the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		switch {
		case m.src.TriggerRefresh():
			m.notice = ""
		case m.status.State == monitor.StateIdle:
			m.notice = "No host selected"
		default:
			m.notice = "Refresh already in progress"
		}
		return true, nil

	case KeyWindow:
		m.apply(m.src.SetWindow(m.status.Window.Next()))
		return true, nil

	case KeyResolution:
		m.apply(m.src.SetResolution(m.status.Resolution.Next()))
		return true, nil

	case KeyInterval:
		m.apply(m.src.SetRefreshInterval(monitor.NextRefreshInterval(m.status.RefreshInterval)))
		return true, nil

	case KeyHost:
		if len(m.hosts) < 2 {
			m.notice = "Only one host configured"
			return true, nil
		}
		m.hostIdx = (m.hostIdx + 1) % len(m.hosts)
		m.hostSeq++
		m.notice = "Connecting to " + m.SelectedHost() + "..."
		return true, m.selectHostCmd(m.SelectedHost())

	case KeyNextCard, KeyNextCardAlt:
		if m.viewMode == ViewCards {
			m.focus = (m.focus + 1) % len(monitor.AllKinds)
		}
		return true, nil

	case KeyPrevCard, KeyPrevCardAlt:
		if m.viewMode == ViewCards {
			m.focus = (m.focus + len(monitor.AllKinds) - 1) % len(monitor.AllKinds)
		}
		return true, nil

	case KeyEntityNext, KeyEntityNextAlt:
		if m.viewMode == ViewDetail {
			return false, nil
		}
		m.moveEntity(1)
		return true, nil

	case KeyEntityPrev, KeyEntityPrevAlt:
		if m.viewMode == ViewDetail {
			return false, nil
		}
		m.moveEntity(-1)
		return true, nil

	case KeyExpand:
		if m.viewMode == ViewCards {
			m.viewMode = ViewDetail
			m.updateDetailViewportContent()
			m.detailViewport.GotoTop()
		}
		return true, nil

	case KeyCollapse:
		m.viewMode = ViewCards
		return true, nil
	}

	return false, nil
}

// apply records a control error in the footer, or clears the footer.
func (m *Model) apply(err error) {
	if err != nil {
		m.notice = noticeText(err)
		return
	}
	m.notice = ""
}

func (m *Model) moveEntity(delta int) {
	kind := m.FocusedKind()
	entities := m.src.Entities(kind)
	if len(entities) < 2 {
		return
	}

	current := m.SelectedEntity(kind)
	idx := 0
	for i, e := range entities {
		if e == current {
			idx = i
		}
	}
	m.entityIdx[kind] = (idx + delta + len(entities)) % len(entities)
}
