package looper

import (
	"sync"

	"go-looper/controls"
	"go-looper/debug"
	"go-looper/midi"
)

// Transports resolves controller numbers to transport buttons.
type Transports interface {
	TransportFor(control uint8) (controls.Transport, bool)
}

// RecordHandler owns the ordered track list and the current-track index.
// Transport buttons drive the current track; every other event is offered to
// it for recording.
type RecordHandler struct {
	mu         sync.Mutex
	seq        Scheduler
	dst        midi.Sink
	period     int64
	transports Transports

	tracks  []*Track
	current int // -1 until the first track exists

	// UpdateChan receives a value (non-blocking) after every transport
	// action, for the UI to redraw.
	UpdateChan chan struct{}
}

// NewRecordHandler creates a handler with no tracks.
func NewRecordHandler(seq Scheduler, dst midi.Sink, transports Transports, period int64) *RecordHandler {
	return &RecordHandler{
		seq:        seq,
		dst:        dst,
		period:     period,
		transports: transports,
		current:    -1,
		UpdateChan: make(chan struct{}, 1),
	}
}

// HandleMIDI consumes transport presses and records everything else on the
// current track. A transport controller with value 0 is a button release and
// is dropped without recording. Buttons that send a press and a release
// would otherwise act twice: one Forward tap would create two tracks.
func (h *RecordHandler) HandleMIDI(ev *midi.Event) error {
	if ev.Type == midi.CC {
		if tr, ok := h.transports.TransportFor(ev.Control()); ok {
			if ev.Value() == 0 {
				return nil
			}
			return h.Do(tr)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if cur := h.currentTrack(); cur != nil {
		cur.MaybeRecord(*ev)
	}
	return nil
}

// Do performs a transport action on the current track.
func (h *RecordHandler) Do(tr controls.Transport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.notify()

	debug.Log("looper", "%s on track %d", tr, h.current)

	switch tr {
	case controls.Record:
		if h.current < 0 {
			h.addTrack()
		}
		h.tracks[h.current].RecordStart()

	case controls.Play:
		if cur := h.currentTrack(); cur != nil {
			return cur.PlayStart()
		}

	case controls.Stop:
		if cur := h.currentTrack(); cur != nil {
			cur.RecordStop()
			cur.PlayStop()
		}

	case controls.Forward:
		if cur := h.currentTrack(); cur != nil {
			cur.RecordStop()
		}
		if h.current+1 < len(h.tracks) {
			h.current++
		} else {
			h.addTrack()
		}

	case controls.Backward:
		if h.current > 0 {
			h.tracks[h.current].RecordStop()
			h.current--
		}
	}
	return nil
}

// Tracks returns the track list in order.
func (h *RecordHandler) Tracks() []*Track {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Track, len(h.tracks))
	copy(out, h.tracks)
	return out
}

// Current returns the current track index, or -1 before the first track.
func (h *RecordHandler) Current() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Updates is UpdateChan as a receive-only channel.
func (h *RecordHandler) Updates() <-chan struct{} { return h.UpdateChan }

// Snapshot returns info for every track and the current index.
func (h *RecordHandler) Snapshot() ([]TrackInfo, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]TrackInfo, len(h.tracks))
	for i, t := range h.tracks {
		infos[i] = t.Info()
	}
	return infos, h.current
}

// Session returns the takes of every track.
func (h *RecordHandler) Session(ticksPerSecond int64) Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Session{TicksPerSecond: ticksPerSecond, Tracks: make([]Take, len(h.tracks))}
	for i, t := range h.tracks {
		s.Tracks[i] = t.Take()
	}
	return s
}

// Restore stops every track and replaces the list with the saved takes,
// converted to ticksPerSecond. The first restored track becomes current.
func (h *RecordHandler) Restore(s Session, ticksPerSecond int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.notify()

	for _, t := range h.tracks {
		t.RecordStop()
		t.PlayStop()
	}

	s = s.rescale(ticksPerSecond)
	h.tracks = make([]*Track, len(s.Tracks))
	for i, take := range s.Tracks {
		h.tracks[i] = NewTrackFromTake(h.seq, h.dst, h.period, take)
	}
	h.current = -1
	if len(h.tracks) > 0 {
		h.current = 0
	}
	debug.Log("looper", "restored %d tracks", len(h.tracks))
}

func (h *RecordHandler) currentTrack() *Track {
	if h.current < 0 || h.current >= len(h.tracks) {
		return nil
	}
	return h.tracks[h.current]
}

// addTrack appends a track and makes it current.
func (h *RecordHandler) addTrack() {
	h.tracks = append(h.tracks, NewTrack(h.seq, h.dst, h.period))
	h.current = len(h.tracks) - 1
	debug.Log("looper", "track %d created", h.current)
}

func (h *RecordHandler) notify() {
	select {
	case h.UpdateChan <- struct{}{}:
	default:
	}
}
