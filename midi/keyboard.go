package midi

import (
	"fmt"

	"go-looper/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// eventBuffer is how many undelivered events a keyboard holds before dropping.
const eventBuffer = 256

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()

	events chan Event
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:     id,
		inPort: inPort,
		events: make(chan Event, eventBuffer),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.receive)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

// receive runs on the driver's thread; it must never block.
func (kb *KeyboardController) receive(msg gomidi.Message, timestampms int32) {
	ev, ok := FromMessage(msg)
	if !ok {
		return
	}
	select {
	case kb.events <- ev:
	default:
		debug.LogEvery(50, "kb", "%s: input buffer full, dropping %s", kb.id, ev)
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Events() <-chan Event {
	return kb.events
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.events)
	return nil
}
