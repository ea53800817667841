package synth

import (
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-looper/controls"
	"go-looper/midi"
)

// Port sends events to an external MIDI output. Events keep their own
// channel; channel is where effect sends go.
type Port struct {
	mu      sync.Mutex
	name    string
	channel uint8
	send    func(gomidi.Message) error
}

// OpenPort opens the first output whose name contains name (case-insensitive).
func OpenPort(name string, channel uint8) (*Port, error) {
	want := strings.ToLower(name)
	for _, out := range gomidi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("open output %s: %w", out.String(), err)
		}
		return NewPort(out.String(), channel, send), nil
	}
	return nil, fmt.Errorf("no MIDI output matching %q", name)
}

// NewPort wraps an already opened send function.
func NewPort(name string, channel uint8, send func(gomidi.Message) error) *Port {
	return &Port{name: name, channel: channel & 0x0F, send: send}
}

func (p *Port) Name() string { return p.name }

func (p *Port) Send(ev midi.Event) error {
	msg := ev.Message()
	if msg == nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, ev)
	}
	return p.write(msg)
}

func (p *Port) write(msg gomidi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.send(msg); err != nil {
		return fmt.Errorf("send to %s: %w", p.name, err)
	}
	return nil
}

// SetParam sends reverb and chorus levels as effect send controllers on the
// port's channel, and reverb time, chorus rate and chorus depth as GM2
// global parameters.
func (p *Port) SetParam(param controls.Param, v float64) error {
	if cc, value, ok := sendLevel(param, v); ok {
		return p.Send(midi.NewCC(p.channel, cc, value))
	}
	if slot, id, value, ok := globalParam(param, v); ok {
		return p.write(globalParamMessage(slot, id, value))
	}
	return ignored(p.name, param)
}
