// Package controls maps keyboard controller numbers to actions and hosts the
// handlers that turn controller moves into synth parameter changes.
package controls

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags what a controller does.
type Kind int

const (
	KindPassthrough Kind = iota // left to the synth (volume, envelopes, ...)
	KindTransport               // loop recorder transport button
	KindEffectMode              // selects which effect the param knobs drive
	KindEffectParam             // one of the four shared effect knobs
	KindFilterButton            // low-pass / high-pass switch
	KindSplitButton             // freezes a keyboard split onto a channel
)

// Transport is a loop recorder transport button.
type Transport int

const (
	Record Transport = iota + 1
	Play
	Stop
	Forward
	Backward
)

var transportNames = map[Transport]string{
	Record:   "record",
	Play:     "play",
	Stop:     "stop",
	Forward:  "forward",
	Backward: "backward",
}

func (t Transport) String() string {
	if s, ok := transportNames[t]; ok {
		return s
	}
	return "transport(" + strconv.Itoa(int(t)) + ")"
}

// EffectMode selects the effect driven by the shared param knobs.
type EffectMode int

const (
	Reverb EffectMode = iota + 1
	Chorus
)

func (m EffectMode) String() string {
	switch m {
	case Reverb:
		return "reverb"
	case Chorus:
		return "chorus"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Action is what a single controller number is bound to.
type Action struct {
	Kind      Kind
	Transport Transport  // KindTransport
	Mode      EffectMode // KindEffectMode
	Index     int        // KindEffectParam (1-4), KindSplitButton (1-4)
}

// String renders the action in the config file syntax.
func (a Action) String() string {
	switch a.Kind {
	case KindTransport:
		return a.Transport.String()
	case KindEffectMode:
		return a.Mode.String() + "-mode"
	case KindEffectParam:
		return "effect-param-" + strconv.Itoa(a.Index)
	case KindFilterButton:
		return "filter-button"
	case KindSplitButton:
		return "split-" + strconv.Itoa(a.Index)
	}
	return "passthrough"
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range transportNames {
		if s == name {
			return Action{Kind: KindTransport, Transport: t}, nil
		}
	}
	switch s {
	case "passthrough":
		return Action{Kind: KindPassthrough}, nil
	case "reverb-mode":
		return Action{Kind: KindEffectMode, Mode: Reverb}, nil
	case "chorus-mode":
		return Action{Kind: KindEffectMode, Mode: Chorus}, nil
	case "filter-button":
		return Action{Kind: KindFilterButton}, nil
	}
	if rest, ok := strings.CutPrefix(s, "effect-param-"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 1 && i <= 4 {
			return Action{Kind: KindEffectParam, Index: i}, nil
		}
	}
	if rest, ok := strings.CutPrefix(s, "split-"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 1 && i <= NumSplits {
			return Action{Kind: KindSplitButton, Index: i}, nil
		}
	}
	return Action{}, fmt.Errorf("unknown control action %q", s)
}

// Map binds controller numbers to actions. Controllers absent from the map
// behave as passthrough.
type Map map[uint8]Action

// DefaultMap mirrors the factory controller assignment of the Impact LX
// keyboards this rig was built for.
func DefaultMap() Map {
	m := Map{
		107: {Kind: KindTransport, Transport: Record},
		106: {Kind: KindTransport, Transport: Play},
		105: {Kind: KindTransport, Transport: Stop},
		104: {Kind: KindTransport, Transport: Forward},
		103: {Kind: KindTransport, Transport: Backward},

		35: {Kind: KindEffectMode, Mode: Chorus},
		36: {Kind: KindEffectMode, Mode: Reverb},
		65: {Kind: KindEffectParam, Index: 1},
		66: {Kind: KindEffectParam, Index: 2},
		67: {Kind: KindEffectParam, Index: 3},
		68: {Kind: KindEffectParam, Index: 4},

		37: {Kind: KindFilterButton},

		46: {Kind: KindSplitButton, Index: 1},
		47: {Kind: KindSplitButton, Index: 2},
		48: {Kind: KindSplitButton, Index: 3},
		49: {Kind: KindSplitButton, Index: 4},
	}
	// Volume, filter cutoff/Q and envelope knobs. They reach the synth as
	// plain controllers; only a synth with its own mapping for them reacts.
	for _, cc := range []uint8{7, 38, 39, 40, 41, 42, 43, 44, 45, 60, 61} {
		m[cc] = Action{Kind: KindPassthrough}
	}
	return m
}

// Lookup returns the action bound to control.
func (m Map) Lookup(control uint8) Action {
	if a, ok := m[control]; ok {
		return a
	}
	return Action{Kind: KindPassthrough}
}

// TransportFor reports whether control is a transport button and which.
func (m Map) TransportFor(control uint8) (Transport, bool) {
	a, ok := m[control]
	if !ok || a.Kind != KindTransport {
		return 0, false
	}
	return a.Transport, true
}

// Strings renders the map for the config file, keyed by controller number.
func (m Map) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for cc, a := range m {
		out[strconv.Itoa(int(cc))] = a.String()
	}
	return out
}

// ParseMap builds a Map from config file entries.
func ParseMap(entries map[string]string) (Map, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := make(Map, len(entries))
	for _, k := range keys {
		cc, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || cc < 0 || cc > 127 {
			return nil, fmt.Errorf("invalid controller number %q", k)
		}
		a, err := ParseAction(entries[k])
		if err != nil {
			return nil, fmt.Errorf("controller %d: %w", cc, err)
		}
		m[uint8(cc)] = a
	}
	return m, nil
}
