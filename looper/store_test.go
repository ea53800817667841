package looper

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go-looper/controls"
	"go-looper/midi"
)

func TestSaveLoadSession(t *testing.T) {
	dir := t.TempDir()
	s := Session{
		TicksPerSecond: 1000,
		Tracks: []Take{
			{Loop: 500, Events: []Recorded{
				{0, midi.NewNoteOn(0, 60, 100)},
				{450, midi.NewNoteOff(0, 60)},
			}},
			{Loop: 0, Events: []Recorded{}},
		},
	}

	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	newer := older.Add(time.Hour)
	if _, err := SaveSession(dir, "", Session{TicksPerSecond: 1000, Tracks: []Take{}}, older); err != nil {
		t.Fatal(err)
	}
	name, err := SaveSession(dir, "jam: take/2", s, newer)
	if err != nil {
		t.Fatal(err)
	}
	if name != "2026-03-01_11-00-00_jam--take-2.json" {
		t.Errorf("filename %q", name)
	}

	saves, err := ListSaves(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(saves) != 2 || saves[0].Filename != name || saves[0].Name != "jam--take-2" || !saves[0].Timestamp.Equal(newer) {
		t.Fatalf("saves %+v", saves)
	}

	got, err := LoadSession(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("loaded %+v, want %+v", got, s)
	}
}

func TestListSavesSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644)
	os.WriteFile(filepath.Join(dir, "short.json"), nil, 0644)
	os.Mkdir(filepath.Join(dir, "2026-03-01_10-00-00.json"), 0755)

	saves, err := ListSaves(dir)
	if err != nil || len(saves) != 0 {
		t.Errorf("saves %+v, %v", saves, err)
	}

	if saves, err := ListSaves(filepath.Join(dir, "missing")); err != nil || len(saves) != 0 {
		t.Errorf("missing dir: %+v, %v", saves, err)
	}
	if _, err := LoadSession(dir, ""); err == nil {
		t.Error("LoadSession with no saves succeeded")
	}
}

func TestRescale(t *testing.T) {
	s := Session{TicksPerSecond: 1000, Tracks: []Take{{Loop: 500, Events: []Recorded{{250, midi.NewNoteOn(0, 1, 1)}}}}}
	got := s.rescale(44100)
	if got.Tracks[0].Loop != 22050 || got.Tracks[0].Events[0].Offset != 11025 {
		t.Errorf("rescaled %+v", got)
	}
	if s.Tracks[0].Loop != 500 {
		t.Error("rescale modified its input")
	}
}

func TestHandlerSessionRestore(t *testing.T) {
	h, seq := newHandler()
	press(h, controls.Record)
	seq.set(100)
	ev := midi.NewNoteOn(0, 60, 100)
	h.HandleMIDI(&ev)
	seq.set(500)
	press(h, controls.Stop)
	press(h, controls.Forward)

	s := h.Session(1000)
	if len(s.Tracks) != 2 || s.Tracks[0].Loop != 500 || len(s.Tracks[0].Events) != 1 {
		t.Fatalf("session %+v", s)
	}

	other, _ := newHandler()
	press(other, controls.Record)
	other.Restore(s, 1000)

	infos, cur := other.Snapshot()
	if len(infos) != 2 || cur != 0 {
		t.Fatalf("restored %+v current %d", infos, cur)
	}
	if infos[0].State != Idle || infos[0].Loop != 500 || infos[0].Events != 1 {
		t.Errorf("restored track %+v", infos[0])
	}
}

func TestTakeDropsEventsPastLoop(t *testing.T) {
	tr := NewTrackFromTake(&fakeSeq{}, nil, testPeriod, Take{Loop: 100, Events: []Recorded{
		{150, midi.NewNoteOn(0, 2, 1)},
		{50, midi.NewNoteOn(0, 1, 1)},
		{-1, midi.NewNoteOn(0, 3, 1)},
		{60, midi.Event{Type: midi.ProgramChange}},
	}})
	if evs := tr.Events(); len(evs) != 2 || evs[0].Offset != 50 {
		t.Fatalf("events %+v", evs)
	}
	if take := tr.Take(); len(take.Events) != 1 || take.Loop != 100 {
		t.Errorf("take %+v", take)
	}
}
