package controls

import (
	"fmt"
	"sync"

	"go-looper/midi"
)

// Param is a synth parameter the knobs can drive.
type Param int

const (
	ReverbRoomSize Param = iota + 1
	ReverbLevel
	ReverbDamp
	ReverbWidth
	ChorusSpeed
	ChorusLevel
	ChorusDepth
	ChorusVoices
	FilterType
)

var paramNames = map[Param]string{
	ReverbRoomSize: "reverb-roomsize",
	ReverbLevel:    "reverb-level",
	ReverbDamp:     "reverb-damp",
	ReverbWidth:    "reverb-width",
	ChorusSpeed:    "chorus-speed",
	ChorusLevel:    "chorus-level",
	ChorusDepth:    "chorus-depth",
	ChorusVoices:   "chorus-voices",
	FilterType:     "filter-type",
}

func (p Param) String() string {
	if s, ok := paramNames[p]; ok {
		return s
	}
	return fmt.Sprintf("param(%d)", int(p))
}

// Filter types for the FilterType param.
const (
	LowPass  = 0
	HighPass = 1
)

// ParamSink is a synth whose parameters can be set at runtime.
type ParamSink interface {
	SetParam(p Param, value float64) error
}

// EffectHandler routes the four shared effect knobs to reverb or chorus
// depending on which effect button was pressed last.
type EffectHandler struct {
	mu    sync.Mutex
	sink  ParamSink
	table Map
	mode  EffectMode
}

// NewEffectHandler starts in reverb mode.
func NewEffectHandler(sink ParamSink, table Map) *EffectHandler {
	return &EffectHandler{sink: sink, table: table, mode: Reverb}
}

// Mode returns the effect currently driven by the knobs.
func (h *EffectHandler) Mode() EffectMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *EffectHandler) HandleMIDI(ev *midi.Event) error {
	if ev.Type != midi.CC {
		return nil
	}
	a := h.table.Lookup(ev.Control())

	h.mu.Lock()
	switch a.Kind {
	case KindEffectMode:
		h.mode = a.Mode
		h.mu.Unlock()
		return nil
	case KindEffectParam:
		mode := h.mode
		h.mu.Unlock()
		p, v := scaleEffect(mode, a.Index, ev.Value())
		if err := h.sink.SetParam(p, v); err != nil {
			return fmt.Errorf("set %s to %g: %w", p, v, err)
		}
		return nil
	}
	h.mu.Unlock()
	return nil
}

// scaleEffect converts a 0-127 knob value into the engine's unit for the
// parameter that knob index drives in mode.
func scaleEffect(mode EffectMode, index int, raw uint8) (Param, float64) {
	v := float64(raw)
	if mode == Chorus {
		switch index {
		case 1:
			return ChorusSpeed, 0.1 + 4.9*v/127
		case 2:
			return ChorusLevel, 10 * v / 127
		case 3:
			return ChorusDepth, 21 * v / 127
		default:
			return ChorusVoices, float64(min(raw, 99))
		}
	}
	switch index {
	case 1:
		return ReverbRoomSize, v / 127
	case 2:
		return ReverbLevel, v / 127
	case 3:
		return ReverbDamp, v / 127
	default:
		return ReverbWidth, 100 * v / 127
	}
}

// FilterHandler switches the synth filter between low-pass (button up) and
// high-pass (button down).
type FilterHandler struct {
	sink  ParamSink
	table Map
}

func NewFilterHandler(sink ParamSink, table Map) *FilterHandler {
	return &FilterHandler{sink: sink, table: table}
}

func (h *FilterHandler) HandleMIDI(ev *midi.Event) error {
	if ev.Type != midi.CC || h.table.Lookup(ev.Control()).Kind != KindFilterButton {
		return nil
	}
	ft := LowPass
	if ev.Value() > midi.ButtonThreshold {
		ft = HighPass
	}
	if err := h.sink.SetParam(FilterType, float64(ft)); err != nil {
		return fmt.Errorf("set %s to %d: %w", FilterType, ft, err)
	}
	return nil
}
