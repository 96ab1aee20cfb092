package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pipedream/midi"
	"pipedream/notes"
	"pipedream/sequencer"
	"pipedream/theme"
	"pipedream/widgets"
)

// flashTime is how long a pressed button stays lit
const flashTime = 300 * time.Millisecond

type mode int

const (
	modeNotes mode = iota
	modeName
	modeDrawer
	modeHelp
)

type Model struct {
	Manager   *sequencer.Manager
	DeviceMgr *midi.DeviceManager // may be nil
	Theme     *theme.Theme

	keys  keyMap
	help  help.Model
	input textinput.Model

	mode        mode
	sel         int // selected note in the tune, -1 = none
	drawerSel   int
	drawerWidth int
	flash       notes.Symbol
	flashID     int
	width       int
	now         func() time.Time
	quitting    bool
	controller  midi.Controller // current controller (may be nil)
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type flashDoneMsg struct{ id int }

func NewModel(manager *sequencer.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Tune name"
	ti.Prompt = "Name: "
	ti.CharLimit = 60
	ti.Width = 30

	return Model{
		Manager:     manager,
		DeviceMgr:   deviceMgr,
		Theme:       th,
		keys:        defaultKeyMap(),
		help:        help.New(),
		input:       ti,
		sel:         -1,
		drawerWidth: 32,
		flash:       widgets.NoneLit,
		width:       80,
		now:         time.Now,
	}
}

// SetDrawerWidth sets the saved-tunes panel width in cells
func (m *Model) SetDrawerWidth(w int) {
	if w > 12 {
		m.drawerWidth = w
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeName:
			return m.updateName(msg)
		case modeDrawer:
			return m.updateDrawer(msg)
		case modeHelp:
			m.mode = modeNotes
			return m, nil
		}
		return m.updateNotes(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case flashDoneMsg:
		if msg.id == m.flashID {
			m.flash = widgets.NoneLit
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		if event.Type == midi.DeviceConnected {
			m.controller = event.Controller
			m.Manager.SetMIDIInput(event.Controller)
			m.Manager.SetStatus(fmt.Sprintf("MIDI keyboard connected: %s", event.ID))
		} else if event.Type == midi.DeviceDisconnected {
			if m.controller != nil && m.controller.ID() == event.ID {
				m.controller = nil
				m.Manager.SetMIDIInput(nil)
			}
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) updateNotes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		m.Manager.Close()
		return m, tea.Quit

	case key.Matches(msg, k.Note):
		s, _ := notes.FromLetter(msg.String()[0])
		m.Manager.AddNote(s)
		m.sel = -1
		return m.lightUp(s)

	case key.Matches(msg, k.Preview):
		s, _ := notes.FromKey(msg.String())
		m.Manager.PlayNote(s)
		return m.lightUp(s)

	case key.Matches(msg, k.Step):
		m.Manager.Step()
		snap := m.Manager.Snapshot()
		if snap.Cursor >= 0 && snap.Cursor < len(snap.Tune) {
			return m.lightUp(snap.Tune[snap.Cursor])
		}

	case key.Matches(msg, k.Delete):
		m.Manager.DeleteLast()
		m.clampSel()

	case key.Matches(msg, k.Left):
		n := len(m.Manager.Snapshot().Tune)
		if n > 0 {
			if m.sel < 0 {
				m.sel = n - 1
			} else if m.sel > 0 {
				m.sel--
			}
		}

	case key.Matches(msg, k.Right):
		n := len(m.Manager.Snapshot().Tune)
		if n > 0 && m.sel < n-1 {
			m.sel++
		}

	case key.Matches(msg, k.Remove):
		if m.sel >= 0 {
			m.Manager.RemoveAt(m.sel)
			m.clampSel()
		}

	case key.Matches(msg, k.PlaySel):
		snap := m.Manager.Snapshot()
		if m.sel >= 0 && m.sel < len(snap.Tune) {
			m.Manager.PlayAt(m.sel)
			return m.lightUp(snap.Tune[m.sel])
		}

	case key.Matches(msg, k.Clear):
		m.Manager.Clear()
		m.sel = -1

	case key.Matches(msg, k.Drone):
		m.Manager.ToggleDrone()

	case key.Matches(msg, k.Name):
		m.mode = modeName
		m.input.SetValue(m.Manager.Snapshot().Name)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, k.Save):
		m.Manager.SaveTune()

	case key.Matches(msg, k.Share):
		m.Manager.CopyShareLink()

	case key.Matches(msg, k.Drawer):
		m.mode = modeDrawer
		m.drawerSel = 0

	case key.Matches(msg, k.Help):
		m.mode = modeHelp
	}
	return m, nil
}

func (m Model) updateName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.Manager.SetName(strings.TrimSpace(m.input.Value()))
		m.input.Blur()
		m.mode = modeNotes
		return m, nil
	case tea.KeyEsc:
		m.input.Blur()
		m.mode = modeNotes
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateDrawer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	n := len(m.Manager.Snapshot().Saved)
	switch {
	case key.Matches(msg, k.Close):
		m.mode = modeNotes
	case key.Matches(msg, k.Up):
		if m.drawerSel > 0 {
			m.drawerSel--
		}
	case key.Matches(msg, k.Down):
		if m.drawerSel < n-1 {
			m.drawerSel++
		}
	case key.Matches(msg, k.Load):
		if n > 0 {
			m.Manager.SelectSaved(m.drawerSel)
			m.sel = -1
			m.mode = modeNotes
		}
	case key.Matches(msg, k.Forget):
		if n > 0 {
			m.Manager.DeleteSaved(m.drawerSel)
			if m.drawerSel >= n-1 {
				m.drawerSel = max(0, n-2)
			}
		}
	case key.Matches(msg, k.Quit):
		m.quitting = true
		m.Manager.Close()
		return m, tea.Quit
	}
	return m, nil
}

// lightUp flashes a chanter button
func (m Model) lightUp(s notes.Symbol) (tea.Model, tea.Cmd) {
	m.flash = s
	m.flashID++
	id := m.flashID
	return m, tea.Tick(flashTime, func(time.Time) tea.Msg { return flashDoneMsg{id: id} })
}

func (m *Model) clampSel() {
	if n := len(m.Manager.Snapshot().Tune); m.sel >= n {
		m.sel = n - 1
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeHelp {
		return "\n" + widgets.RenderKeyHelp(m.keys.sections()) + "\n\n" +
			lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("press any key")
	}

	snap := m.Manager.Snapshot()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())

	// Header with tune and device status
	name := snap.Name
	if name == "" {
		name = "untitled"
	}
	header := headerStyle.Render("pipedream") + "  " + dimStyle.Render(widgets.Truncate(name, 40))
	if snap.Drone {
		header += "  " + lipgloss.NewStyle().Foreground(m.Theme.Active()).Render(string(m.Theme.Symbols.Drone)+" drone")
	}
	if m.controller != nil {
		header += "  " + dimStyle.Render("midi")
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		widgets.RenderChanter(m.Theme, m.flash),
		"",
		widgets.RenderTune(m.Theme, snap.Tune, snap.Cursor, m.sel, m.mainWidth()),
	)

	body := main
	if m.mode == modeDrawer {
		body = lipgloss.JoinHorizontal(lipgloss.Top, main, "  ", m.viewDrawer(snap.Saved))
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(body)
	out.WriteString("\n\n")
	if m.mode == modeName {
		out.WriteString(m.input.View())
		out.WriteString("\n")
	}
	if snap.Status != "" {
		out.WriteString(statusStyle.Render(snap.Status))
		out.WriteString("\n")
	}
	if m.mode == modeDrawer {
		out.WriteString(m.help.ShortHelpView(m.keys.drawerHelp()))
	} else {
		out.WriteString(m.help.View(m.keys))
	}
	return out.String()
}

func (m Model) mainWidth() int {
	w := m.width
	if m.mode == modeDrawer {
		w -= m.drawerWidth + 2
	}
	return max(20, w)
}

func (m Model) viewDrawer(saved []sequencer.SavedTune) string {
	box := lipgloss.NewStyle().
		Width(m.drawerWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.Theme.Muted()).
		Padding(0, 1)
	title := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Render("Saved tunes")
	if len(saved) == 0 {
		return box.Render(title + "\n\n" + lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("Nothing saved yet"))
	}

	inner := m.drawerWidth - 4
	lines := []string{title, ""}
	for i, t := range saved {
		marker := "  "
		style := lipgloss.NewStyle().Foreground(m.Theme.FG())
		if i == m.drawerSel {
			marker = string(m.Theme.Symbols.Selected) + " "
			style = style.Foreground(m.Theme.Cursor())
		}
		lines = append(lines, style.Render(marker+widgets.Truncate(t.DisplayName(i), inner-2)))

		meta := fmt.Sprintf("%c %d notes", m.Theme.Symbols.Saved, len(t.Notes))
		if !t.SavedAt.IsZero() {
			meta += ", " + humanize.RelTime(t.SavedAt, m.now(), "ago", "from now")
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("  "+widgets.Truncate(meta, inner-2)))
	}
	return box.Render(strings.Join(lines, "\n"))
}
