package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOff         uint8 = 0x80
	NoteOn          uint8 = 0x90
	CC              uint8 = 0xB0
	ProgramChange   uint8 = 0xC0
	ChannelPressure uint8 = 0xD0
)

// ButtonThreshold splits controller values into released (<= threshold) and
// pressed (> threshold) for latching buttons.
const ButtonThreshold = 64

// Event is a single channel message from the keyboard or for the synth.
// For CC events Note holds the controller number and Velocity its value.
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC, ...
	Channel  uint8 // 0-15
	Note     uint8
	Velocity uint8
}

// Sink accepts events destined for a synthesis engine.
type Sink interface {
	Send(ev Event) error
}

// Handler inspects (and may rewrite) an inbound event.
type Handler interface {
	HandleMIDI(ev *Event) error
}

// Control returns the controller number of a CC event.
func (e Event) Control() uint8 { return e.Note }

// Value returns the controller value of a CC event.
func (e Event) Value() uint8 { return e.Velocity }

// IsNote reports whether the event is a note-on or note-off.
func (e Event) IsNote() bool {
	return e.Type == NoteOn || e.Type == NoteOff
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("note-on ch=%d key=%d vel=%d", e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("note-off ch=%d key=%d", e.Channel, e.Note)
	case CC:
		return fmt.Sprintf("cc ch=%d ctl=%d val=%d", e.Channel, e.Note, e.Velocity)
	case ProgramChange:
		return fmt.Sprintf("program ch=%d prog=%d", e.Channel, e.Velocity)
	case ChannelPressure:
		return fmt.Sprintf("pressure ch=%d val=%d", e.Channel, e.Velocity)
	}
	return fmt.Sprintf("event type=0x%02X ch=%d", e.Type, e.Channel)
}

// NewNoteOn builds a note-on event.
func NewNoteOn(channel, key, velocity uint8) Event {
	return Event{Type: NoteOn, Channel: channel, Note: key, Velocity: velocity}
}

// NewNoteOff builds a note-off event.
func NewNoteOff(channel, key uint8) Event {
	return Event{Type: NoteOff, Channel: channel, Note: key}
}

// NewCC builds a control change event.
func NewCC(channel, control, value uint8) Event {
	return Event{Type: CC, Channel: channel, Note: control, Velocity: value}
}

// FromMessage decodes a gomidi channel message. Note-on with velocity 0 is
// reported as note-off. Messages with no Event equivalent return false.
func FromMessage(msg gomidi.Message) (Event, bool) {
	var channel, key, velocity uint8
	var control, value uint8
	var program, pressure uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			return NewNoteOff(channel, key), true
		}
		return NewNoteOn(channel, key, velocity), true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return NewNoteOff(channel, key), true
	case msg.GetControlChange(&channel, &control, &value):
		return NewCC(channel, control, value), true
	case msg.GetProgramChange(&channel, &program):
		return Event{Type: ProgramChange, Channel: channel, Velocity: program}, true
	case msg.GetAfterTouch(&channel, &pressure):
		return Event{Type: ChannelPressure, Channel: channel, Velocity: pressure}, true
	}
	return Event{}, false
}

// Message encodes the event for a gomidi sender. Unknown types yield nil.
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	case CC:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	case ProgramChange:
		return gomidi.ProgramChange(e.Channel, e.Velocity)
	case ChannelPressure:
		return gomidi.AfterTouch(e.Channel, e.Velocity)
	}
	return nil
}
