package synth

import (
	"bytes"
	"errors"
	"os"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-looper/controls"
	"go-looper/midi"
)

func TestSendLevel(t *testing.T) {
	tests := []struct {
		p      controls.Param
		v      float64
		cc     uint8
		value  uint8
		mapped bool
	}{
		{controls.ReverbLevel, 0, 91, 0, true},
		{controls.ReverbLevel, 1, 91, 127, true},
		{controls.ReverbLevel, 0.5, 91, 64, true},
		{controls.ChorusLevel, 10, 93, 127, true},
		{controls.ChorusLevel, 5, 93, 64, true},
		{controls.ChorusLevel, 20, 93, 127, true},
		{controls.ReverbRoomSize, 1, 0, 0, false},
		{controls.FilterType, controls.HighPass, 0, 0, false},
	}
	for _, tt := range tests {
		cc, value, ok := sendLevel(tt.p, tt.v)
		if ok != tt.mapped || cc != tt.cc || value != tt.value {
			t.Errorf("sendLevel(%s, %g) = %d, %d, %v; want %d, %d, %v",
				tt.p, tt.v, cc, value, ok, tt.cc, tt.value, tt.mapped)
		}
	}
}

type captured struct {
	msgs []gomidi.Message
	fail error
}

func (c *captured) send(msg gomidi.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.fail
}

func TestPortSend(t *testing.T) {
	c := &captured{}
	p := NewPort("test", 2, c.send)

	if err := p.Send(midi.NewNoteOn(5, 60, 100)); err != nil {
		t.Fatal(err)
	}
	var ch, key, vel uint8
	if len(c.msgs) != 1 || !c.msgs[0].GetNoteStart(&ch, &key, &vel) || ch != 5 || key != 60 || vel != 100 {
		t.Fatalf("sent %v, want note on ch 5 key 60", c.msgs)
	}

	if err := p.Send(midi.Event{Type: 0xE0}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("pitch bend err = %v", err)
	}
}

func TestPortSetParam(t *testing.T) {
	c := &captured{}
	p := NewPort("test", 2, c.send)

	if err := p.SetParam(controls.ReverbLevel, 1); err != nil {
		t.Fatal(err)
	}
	var ch, cc, val uint8
	if len(c.msgs) != 1 || !c.msgs[0].GetControlChange(&ch, &cc, &val) || ch != 2 || cc != 91 || val != 127 {
		t.Errorf("sent %v, want cc91=127 on ch 2", c.msgs)
	}

	if err := p.SetParam(controls.ReverbDamp, 1); err != nil || len(c.msgs) != 1 {
		t.Errorf("reverb damp: err %v, sent %v", err, c.msgs)
	}
}

func TestGlobalParam(t *testing.T) {
	tests := []struct {
		p                  controls.Param
		v                  float64
		slot, param, value uint8
		mapped             bool
	}{
		{controls.ReverbRoomSize, 1, 1, 1, 127, true},
		{controls.ReverbRoomSize, 0, 1, 1, 0, true},
		{controls.ChorusSpeed, 5, 2, 1, 41, true},
		{controls.ChorusSpeed, 0.1, 2, 1, 1, true},
		{controls.ChorusDepth, 21, 2, 2, 66, true},
		{controls.ChorusDepth, 0, 2, 2, 0, true},
		{controls.ReverbWidth, 100, 0, 0, 0, false},
		{controls.ChorusVoices, 3, 0, 0, 0, false},
		{controls.FilterType, controls.HighPass, 0, 0, 0, false},
	}
	for _, tt := range tests {
		slot, param, value, ok := globalParam(tt.p, tt.v)
		if ok != tt.mapped || slot != tt.slot || param != tt.param || value != tt.value {
			t.Errorf("globalParam(%s, %g) = %d, %d, %d, %v; want %d, %d, %d, %v",
				tt.p, tt.v, slot, param, value, ok, tt.slot, tt.param, tt.value, tt.mapped)
		}
	}
}

// Every effect knob and the filter button move without an error; the ones
// with a General MIDI equivalent reach the port.
func TestKnobsReachingPort(t *testing.T) {
	table := controls.DefaultMap()
	const (
		chorusButton = 35
		reverbButton = 36
		filterButton = 37
	)
	tests := []struct {
		mode uint8
		knob uint8
		want []byte
	}{
		{reverbButton, 65, []byte{0xF0, 0x7F, 0x7F, 0x04, 0x05, 1, 1, 1, 1, 1, 1, 127, 0xF7}},
		{reverbButton, 66, []byte{0xB3, 91, 127}},
		{reverbButton, 67, nil},
		{reverbButton, 68, nil},
		{chorusButton, 65, []byte{0xF0, 0x7F, 0x7F, 0x04, 0x05, 1, 1, 1, 1, 2, 1, 41, 0xF7}},
		{chorusButton, 66, []byte{0xB3, 93, 127}},
		{chorusButton, 67, []byte{0xF0, 0x7F, 0x7F, 0x04, 0x05, 1, 1, 1, 1, 2, 2, 66, 0xF7}},
		{chorusButton, 68, nil},
	}
	for _, tt := range tests {
		c := &captured{}
		h := controls.NewEffectHandler(NewPort("test", 3, c.send), table)
		mode := midi.NewCC(0, tt.mode, 127)
		knob := midi.NewCC(0, tt.knob, 127)
		if err := h.HandleMIDI(&mode); err != nil {
			t.Fatal(err)
		}
		if err := h.HandleMIDI(&knob); err != nil {
			t.Errorf("mode %d knob %d: %v", tt.mode, tt.knob, err)
			continue
		}
		switch {
		case tt.want == nil && len(c.msgs) != 0:
			t.Errorf("mode %d knob %d sent %v, want nothing", tt.mode, tt.knob, c.msgs)
		case tt.want != nil && (len(c.msgs) != 1 || !bytes.Equal(c.msgs[0], tt.want)):
			t.Errorf("mode %d knob %d sent % X, want % X", tt.mode, tt.knob, c.msgs, tt.want)
		}
	}

	c := &captured{}
	f := controls.NewFilterHandler(NewPort("test", 3, c.send), table)
	press := midi.NewCC(0, filterButton, 127)
	if err := f.HandleMIDI(&press); err != nil || len(c.msgs) != 0 {
		t.Errorf("filter button: err %v, sent %v", err, c.msgs)
	}
}

func TestPortSendError(t *testing.T) {
	boom := errors.New("unplugged")
	p := NewPort("test", 0, (&captured{fail: boom}).send)
	if err := p.Send(midi.NewNoteOff(0, 60)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped unplugged", err)
	}
}

func TestPCM16Clamps(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-3, -32767},
	}
	for _, tt := range tests {
		if got := pcm16(tt.in); got != tt.want {
			t.Errorf("pcm16(%g) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// findSoundFont returns a soundfont for engine tests or skips.
func findSoundFont(t *testing.T) string {
	t.Helper()
	for _, p := range []string{os.Getenv("GO_LOOPER_SF2"), "testdata/test.sf2", "../GeneralUser-GS.sf2"} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skip("SoundFont file not found")
	return ""
}

func TestMeltyRendersNote(t *testing.T) {
	m, err := LoadMelty(findSoundFont(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Send(midi.NewNoteOn(0, 60, 127)); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4*4410)
	n, err := m.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	silent := true
	for _, b := range buf {
		if b != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("note rendered as silence")
	}

	if err := m.SetParam(controls.ReverbLevel, 0.5); err != nil {
		t.Errorf("SetParam reverb level: %v", err)
	}
	if err := m.SetParam(controls.FilterType, controls.LowPass); err != nil {
		t.Errorf("filter err = %v", err)
	}
	if err := m.Send(midi.Event{Type: 0xE0}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("pitch bend err = %v", err)
	}
	m.AllNotesOff()
}

func TestLoadMeltyMissingFile(t *testing.T) {
	_, err := LoadMelty("testdata/does-not-exist.sf2")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
