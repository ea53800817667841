// Package looper records keyboard performances into tracks and replays them
// as seamless loops through an event sequencer.
package looper

import "go-looper/midi"

// DefaultPeriod is the playback callback period in ticks.
const DefaultPeriod = 50

// Scheduler is the event sequencer a Track records against and plays
// through. It must not invoke callbacks or deliver events synchronously from
// inside ScheduleAt or After.
type Scheduler interface {
	// Tick is the shared, non-decreasing clock.
	Tick() int64
	// ScheduleAt hands ev to the sequencer for delivery to dst at or after
	// tick. It does not wait for delivery.
	ScheduleAt(dst midi.Sink, tick int64, ev midi.Event) error
	// After runs fn once, ticks from now.
	After(ticks int64, fn func()) error
}

// State is the combined record/playback state of a Track.
type State int

const (
	Idle State = iota
	Recording
	Playing
	Overdubbing // recording while the previous take keeps looping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "rec"
	case Playing:
		return "play"
	case Overdubbing:
		return "overdub"
	}
	return "?"
}

// Recording reports whether new events are being captured.
func (s State) Recording() bool { return s == Recording || s == Overdubbing }

// Playing reports whether playback is scheduling events.
func (s State) Playing() bool { return s == Playing || s == Overdubbing }

// Transitions. Every input is defined in every state; inputs that do not
// apply leave the state unchanged.
//
//	            recStart     recStop   playStart    playStop
//	Idle        Recording    Idle      Playing      Idle
//	Recording   Recording    Idle      Overdubbing  Recording
//	Playing     Overdubbing  Playing   Playing      Idle
//	Overdubbing Overdubbing  Playing   Overdubbing  Recording
func (s State) withRecording(on bool) State {
	return compose(on, s.Playing())
}

func (s State) withPlaying(on bool) State {
	return compose(s.Recording(), on)
}

func compose(recording, playing bool) State {
	switch {
	case recording && playing:
		return Overdubbing
	case recording:
		return Recording
	case playing:
		return Playing
	}
	return Idle
}

// Recorded is one captured event, offset from the start of its take.
type Recorded struct {
	Offset int64      `json:"offset"`
	Event  midi.Event `json:"event"`
}

// recordable reports whether ev can be stored on a track. Only note and
// controller messages are replayed.
func recordable(ev midi.Event) bool {
	switch ev.Type {
	case midi.NoteOn, midi.NoteOff, midi.CC:
		return true
	}
	return false
}
