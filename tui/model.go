package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-looper/controls"
	"go-looper/looper"
	"go-looper/midi"
	"go-looper/theme"
)

// Clock is the tick source the track positions are drawn against.
type Clock interface {
	Tick() int64
	TicksPerSecond() int64
}

const (
	refreshRate = time.Second / 20
	barWidth    = 24
)

type Model struct {
	Handler   *looper.RecordHandler
	DeviceMgr *midi.DeviceManager
	Clock     Clock
	Theme     *theme.Theme

	// OnConnect is called for every keyboard that appears.
	OnConnect func(midi.Controller)

	// SessionsDir is where w saves and o loads. Empty disables both.
	SessionsDir string

	devices  map[string]bool
	lastErr  string
	status   string
	quitting bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type refreshMsg time.Time

func NewModel(handler *looper.RecordHandler, deviceMgr *midi.DeviceManager, clock Clock, th *theme.Theme) Model {
	return Model{
		Handler:   handler,
		DeviceMgr: deviceMgr,
		Clock:     clock,
		Theme:     th,
		devices:   make(map[string]bool),
	}
}

func ListenForUpdates(handler *looper.RecordHandler) tea.Cmd {
	return func() tea.Msg {
		<-handler.Updates()
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Handler), refresh()}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

var keyTransports = map[string]controls.Transport{
	"r":     controls.Record,
	"p":     controls.Play,
	"s":     controls.Stop,
	" ":     controls.Stop,
	"]":     controls.Forward,
	"right": controls.Forward,
	"[":     controls.Backward,
	"left":  controls.Backward,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "w":
			m.save()
		case "o":
			m.load()
		default:
			if tr, ok := keyTransports[key]; ok {
				m.lastErr, m.status = "", ""
				if err := m.Handler.Do(tr); err != nil {
					m.lastErr = err.Error()
				}
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Handler)

	case refreshMsg:
		return m, refresh()

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.devices[event.ID] = true
			if m.OnConnect != nil && event.Controller != nil {
				m.OnConnect(event.Controller)
			}
		case midi.DeviceDisconnected:
			delete(m.devices, event.ID)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	infos, current := m.Handler.Snapshot()
	now := m.Clock.Tick()

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("go-looper  %d tracks  %s", len(infos), m.deviceList())))
	out.WriteString("\n\n")

	if len(infos) == 0 {
		out.WriteString(dimStyle.Render("  press record to start the first track"))
		out.WriteString("\n")
	}
	for i, info := range infos {
		out.WriteString(m.trackLine(i, info, i == current, now))
		out.WriteString("\n")
	}

	if m.lastErr != "" {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.lastErr))
		out.WriteString("\n")
	} else if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("r:record  p:play  s:stop  [/]:track  w:save  o:load  q:quit"))
	return out.String()
}

func (m *Model) save() {
	m.lastErr, m.status = "", ""
	if m.SessionsDir == "" {
		return
	}
	name, err := looper.SaveSession(m.SessionsDir, "", m.Handler.Session(m.Clock.TicksPerSecond()), time.Now())
	if err != nil {
		m.lastErr = "save: " + err.Error()
		return
	}
	m.status = "saved " + name
}

// load restores the most recent save.
func (m *Model) load() {
	m.lastErr, m.status = "", ""
	if m.SessionsDir == "" {
		return
	}
	s, err := looper.LoadSession(m.SessionsDir, "")
	if err != nil {
		m.lastErr = "load: " + err.Error()
		return
	}
	m.Handler.Restore(s, m.Clock.TicksPerSecond())
	m.status = fmt.Sprintf("loaded %d tracks", len(s.Tracks))
}

func (m Model) deviceList() string {
	if len(m.devices) == 0 {
		return "no keyboard"
	}
	names := make([]string, 0, len(m.devices))
	for id := range m.devices {
		names = append(names, id)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (m Model) trackLine(i int, info looper.TrackInfo, current bool, now int64) string {
	sym := m.Theme.Symbols

	marker := " "
	if current {
		marker = string(sym.Current)
	}

	var state rune
	color := m.Theme.FG()
	switch info.State {
	case looper.Recording:
		state, color = sym.Record, m.Theme.Active()
	case looper.Playing:
		state, color = sym.Play, m.Theme.Success()
	case looper.Overdubbing:
		state, color = sym.Overdub, m.Theme.Active()
	default:
		state = sym.Idle
	}
	style := lipgloss.NewStyle().Foreground(color)

	tps := m.Clock.TicksPerSecond()
	line := fmt.Sprintf("%s %2d %c %-7s %4d ev  %6.2fs  %s",
		marker, i+1, state, info.State, info.Events,
		float64(info.Loop)/float64(tps), m.progress(info, now))
	return style.Render(line)
}

// progress draws the playhead position within the current loop cycle.
func (m Model) progress(info looper.TrackInfo, now int64) string {
	sym := m.Theme.Symbols
	filled := 0
	if info.State.Playing() && info.Loop > 0 {
		pos := (now - info.PlayStart) % info.Loop
		if pos < 0 {
			pos = 0
		}
		filled = int(pos * barWidth / info.Loop)
	}
	return strings.Repeat(string(sym.Progress), filled) + strings.Repeat(string(sym.Rest), barWidth-filled)
}
