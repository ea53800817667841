package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-looper/controls"
	"go-looper/looper"
	"go-looper/midi"
	"go-looper/sequencer"
	"go-looper/theme"
)

func newTestModel() Model {
	seq := sequencer.New(1000)
	h := looper.NewRecordHandler(seq, nil, controls.DefaultMap(), looper.DefaultPeriod)
	return NewModel(h, nil, seq, theme.New(theme.Default()))
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysDriveTransport(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(key("r"))
	m = next.(Model)
	infos, cur := m.Handler.Snapshot()
	if len(infos) != 1 || cur != 0 || infos[0].State != looper.Recording {
		t.Fatalf("after r: %+v current %d", infos, cur)
	}

	next, _ = m.Update(key("]"))
	m = next.(Model)
	if m.Handler.Current() != 1 {
		t.Errorf("after ]: current %d", m.Handler.Current())
	}

	next, _ = m.Update(key("["))
	m = next.(Model)
	if m.Handler.Current() != 0 {
		t.Errorf("after [: current %d", m.Handler.Current())
	}

	view := m.View()
	if !strings.Contains(view, "2 tracks") {
		t.Errorf("view missing track count:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if next.(Model).View() != "" {
		t.Error("view not cleared on quit")
	}
}

type stubController struct{ id string }

func (c stubController) ID() string               { return c.id }
func (c stubController) Events() <-chan midi.Event { return nil }
func (c stubController) Close() error             { return nil }

func TestDeviceEvents(t *testing.T) {
	m := newTestModel()
	var connected []string
	m.OnConnect = func(c midi.Controller) { connected = append(connected, c.ID()) }

	next, _ := m.Update(DeviceEventMsg{Type: midi.DeviceConnected, ID: "Impact LX49", Controller: stubController{"Impact LX49"}})
	m = next.(Model)
	if len(connected) != 1 || !strings.Contains(m.View(), "Impact LX49") {
		t.Fatalf("connect not handled: %v", connected)
	}

	next, _ = m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: "Impact LX49"})
	m = next.(Model)
	if !strings.Contains(m.View(), "no keyboard") {
		t.Error("disconnect not handled")
	}
}

func TestProgressBar(t *testing.T) {
	m := newTestModel()
	info := looper.TrackInfo{State: looper.Playing, Loop: 1000, PlayStart: 0}
	bar := []rune(m.progress(info, 500))
	if len(bar) != barWidth {
		t.Fatalf("bar width %d", len(bar))
	}
	if bar[barWidth/2-1] != m.Theme.Symbols.Progress || bar[barWidth/2] != m.Theme.Symbols.Rest {
		t.Errorf("half-way bar = %s", string(bar))
	}

	info.State = looper.Idle
	if strings.ContainsRune(m.progress(info, 500), m.Theme.Symbols.Progress) {
		t.Error("idle track shows progress")
	}
}

func TestSaveAndLoadKeys(t *testing.T) {
	m := newTestModel()
	m.SessionsDir = t.TempDir()

	for _, k := range []string{"r", "]", "w"} {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	if m.lastErr != "" || !strings.Contains(m.View(), "saved ") {
		t.Fatalf("save failed: %q", m.lastErr)
	}

	fresh := newTestModel()
	fresh.SessionsDir = m.SessionsDir
	next, _ := fresh.Update(key("o"))
	fresh = next.(Model)
	if fresh.lastErr != "" {
		t.Fatal(fresh.lastErr)
	}
	infos, cur := fresh.Handler.Snapshot()
	if len(infos) != 2 || cur != 0 {
		t.Errorf("loaded %d tracks, current %d", len(infos), cur)
	}
}

func TestLoadWithoutSaves(t *testing.T) {
	m := newTestModel()
	m.SessionsDir = t.TempDir()
	next, _ := m.Update(key("o"))
	if !strings.HasPrefix(next.(Model).lastErr, "load:") {
		t.Errorf("lastErr %q", next.(Model).lastErr)
	}
}
