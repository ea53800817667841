// Package synth provides the sinks that turn events into sound: an
// in-process meltysynth engine and an external MIDI output port.
package synth

import (
	"errors"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-looper/controls"
	"go-looper/debug"
)

// ErrUnsupported is returned for events a sink cannot play.
var ErrUnsupported = errors.New("unsupported by synth")

// General MIDI effect send controllers.
const (
	ccReverbSend uint8 = 91
	ccChorusSend uint8 = 93
)

// GM2 Global Parameter Control slots and their parameter numbers.
const (
	slotReverb uint8 = 1
	slotChorus uint8 = 2

	reverbTime  uint8 = 1
	chorusRate  uint8 = 1
	chorusDepth uint8 = 2
)

// clamp7 rounds x into a 7-bit data byte.
func clamp7(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(127, x))))
}

// sendLevel maps a level parameter onto its effect send controller.
func sendLevel(p controls.Param, v float64) (cc, value uint8, ok bool) {
	switch p {
	case controls.ReverbLevel:
		return ccReverbSend, clamp7(v * 127), true
	case controls.ChorusLevel:
		return ccChorusSend, clamp7(v / 10 * 127), true
	}
	return 0, 0, false
}

// globalParam maps a parameter onto a GM2 reverb or chorus parameter.
// Reverb time follows room size; the chorus rate unit is 0.122 Hz and
// depth is (value+1)/3.2 ms.
func globalParam(p controls.Param, v float64) (slot, param, value uint8, ok bool) {
	switch p {
	case controls.ReverbRoomSize:
		return slotReverb, reverbTime, clamp7(v * 127), true
	case controls.ChorusSpeed:
		return slotChorus, chorusRate, clamp7(v / 0.122), true
	case controls.ChorusDepth:
		return slotChorus, chorusDepth, clamp7(v*3.2 - 1), true
	}
	return 0, 0, 0, false
}

// globalParamMessage builds the universal realtime SysEx for one slot
// parameter, addressed to every device.
func globalParamMessage(slot, param, value uint8) gomidi.Message {
	return gomidi.Message{
		0xF0, 0x7F, 0x7F, 0x04, 0x05,
		0x01, 0x01, 0x01, // slot path, param and value widths
		0x01, slot,
		param, value,
		0xF7,
	}
}

// ignored drops a parameter the sink has no control for. Damping, width,
// voice count and the filter type have no General MIDI equivalent.
func ignored(sink string, p controls.Param) error {
	debug.LogEvery(20, "synth", "%s ignores %s", sink, p)
	return nil
}
