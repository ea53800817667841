package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"go-looper/controls"
	"go-looper/debug"
	"go-looper/midi"
)

// SampleRate is the rate Melty renders at.
const SampleRate = 44100

// Melty is a soundfont synthesizer. It is a midi.Sink and a
// controls.ParamSink, and Read renders 16-bit little-endian stereo PCM for an
// audio player.
type Melty struct {
	mu    sync.Mutex
	synth *meltysynth.Synthesizer

	left, right []float32
}

// LoadMelty reads a .sf2 file and builds a synthesizer for it.
func LoadMelty(path string) (*Melty, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read soundfont: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont %s: %w", path, err)
	}
	return NewMelty(sf)
}

// NewMelty builds a synthesizer for an already parsed soundfont.
func NewMelty(sf *meltysynth.SoundFont) (*Melty, error) {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	s, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	debug.Log("synth", "melty ready at %d Hz", SampleRate)
	return &Melty{synth: s}, nil
}

// Send plays ev on the synthesizer.
func (m *Melty) Send(ev midi.Event) error {
	var d1, d2 int32
	switch ev.Type {
	case midi.NoteOn, midi.NoteOff, midi.CC:
		d1, d2 = int32(ev.Note), int32(ev.Velocity)
	case midi.ProgramChange, midi.ChannelPressure:
		d1 = int32(ev.Velocity)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, ev)
	}

	m.mu.Lock()
	m.synth.ProcessMidiMessage(int32(ev.Channel), int32(ev.Type), d1, d2)
	m.mu.Unlock()
	return nil
}

// SetParam applies reverb and chorus levels as effect sends on every
// channel. The engine takes no SysEx, so every other parameter is ignored.
func (m *Melty) SetParam(p controls.Param, v float64) error {
	cc, value, ok := sendLevel(p, v)
	if !ok {
		return ignored("melty", p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := int32(0); ch < 16; ch++ {
		m.synth.ProcessMidiMessage(ch, int32(midi.CC), int32(cc), int32(value))
	}
	return nil
}

// AllNotesOff releases every sounding voice.
func (m *Melty) AllNotesOff() {
	m.mu.Lock()
	m.synth.NoteOffAll(false)
	m.mu.Unlock()
}

// Read renders len(p)/4 stereo frames. It never returns an error, so an
// audio player reading from it plays until stopped.
func (m *Melty) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if cap(m.left) < frames {
		m.left = make([]float32, frames)
		m.right = make([]float32, frames)
	}
	left, right := m.left[:frames], m.right[:frames]
	m.synth.Render(left, right)
	m.mu.Unlock()

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(pcm16(left[i])))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(pcm16(right[i])))
	}
	return frames * 4, nil
}

func pcm16(v float32) int16 {
	return int16(math.Max(-1, math.Min(1, float64(v))) * math.MaxInt16)
}
