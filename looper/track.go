package looper

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go-looper/debug"
	"go-looper/midi"
)

// Track owns one recorded performance and replays it as a loop.
//
// Playback is driven by a one-shot sequencer callback that re-arms itself
// every period ticks. Each pass hands the sequencer every event due before
// now+2*period, so an event is queued at least one period before it plays
// and a single late callback does not cause a dropout.
type Track struct {
	mu     sync.Mutex
	seq    Scheduler
	dst    midi.Sink
	period int64

	state       State
	recordStart int64
	recordStop  int64
	loop        int64 // length of the last completed take

	playStart int64  // start tick of the current loop cycle
	watermark int64  // first tick not yet handed to the sequencer
	wraps     int    // loop cycles completed since PlayStart
	gen       uint64 // bumped on PlayStart; stale callbacks compare against it

	events []Recorded // sorted by Offset
}

// TrackInfo is a point-in-time view of a Track.
type TrackInfo struct {
	State       State
	Events      int
	Loop        int64
	RecordStart int64
	RecordStop  int64
	PlayStart   int64
	Watermark   int64
	Wraps       int
}

// NewTrack creates an empty track that plays into dst through seq.
func NewTrack(seq Scheduler, dst midi.Sink, period int64) *Track {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Track{seq: seq, dst: dst, period: period}
}

// RecordStart begins a new take. No-op while already recording.
func (t *Track) RecordStart() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Recording() {
		return
	}
	now := t.seq.Tick()
	t.recordStart, t.recordStop = now, now
	t.state = t.state.withRecording(true)
	debug.Log("track", "record start at %d (%s)", now, t.state)
}

// RecordStop ends the take and freezes its length as the loop duration.
// No-op while not recording.
func (t *Track) RecordStop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Recording() {
		return
	}
	t.recordStop = t.seq.Tick()
	t.loop = t.recordStop - t.recordStart
	t.state = t.state.withRecording(false)
	debug.Log("track", "record stop at %d, loop=%d events=%d", t.recordStop, t.loop, len(t.events))
}

// PlayStart starts looping from now: the first pass is scheduled
// immediately and the callback chain is armed. No-op while already playing.
func (t *Track) PlayStart() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Playing() {
		return nil
	}
	now := t.seq.Tick()
	t.playStart, t.watermark = now, now
	t.wraps = 0
	t.gen++
	t.state = t.state.withPlaying(true)
	debug.Log("track", "play start at %d, loop=%d", now, t.loop)

	return errors.Join(t.scheduleAhead(now), t.arm())
}

// PlayStop stops scheduling. Events already handed to the sequencer still
// play. No-op while not playing.
func (t *Track) PlayStop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Playing() {
		return
	}
	t.state = t.state.withPlaying(false)
	debug.Log("track", "play stop at %d", t.seq.Tick())
}

// MaybeRecord appends ev to the current take when recording. Only note and
// controller events are kept; anything else is dropped.
//
// The recording check and the offset are taken under the same lock as
// RecordStop, so an event arriving on the stop tick is either part of the
// take (offset == loop) or rejected, never half-recorded.
func (t *Track) MaybeRecord(ev midi.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Recording() || !recordable(ev) {
		return
	}
	t.insert(Recorded{Offset: t.seq.Tick() - t.recordStart, Event: ev})
}

// insert keeps events in offset order, after any event at the same offset.
// A second take restarts offsets at zero, so appending is not enough.
// Caller holds t.mu.
func (t *Track) insert(r Recorded) {
	i := sort.Search(len(t.events), func(i int) bool { return t.events[i].Offset > r.Offset })
	t.events = append(t.events, Recorded{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = r
}

// NewTrackFromTake creates an idle track holding a saved take. Events with
// a negative offset or an unsupported type are skipped.
func NewTrackFromTake(seq Scheduler, dst midi.Sink, period int64, take Take) *Track {
	t := NewTrack(seq, dst, period)
	t.loop = max(take.Loop, 0)
	for _, r := range take.Events {
		if r.Offset >= 0 && recordable(r.Event) {
			t.insert(r)
		}
	}
	return t
}

// Take returns the completed take: the loop length and the events that
// fall inside it.
func (t *Track) Take() Take {
	t.mu.Lock()
	defer t.mu.Unlock()
	evs := make([]Recorded, 0, len(t.events))
	for _, r := range t.events {
		if r.Offset <= t.loop {
			evs = append(evs, r)
		}
	}
	return Take{Loop: t.loop, Events: evs}
}

// State returns the current record/playback state.
func (t *Track) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Events returns a copy of the recorded events in offset order.
func (t *Track) Events() []Recorded {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Recorded, len(t.events))
	copy(out, t.events)
	return out
}

// Info returns a snapshot of the track.
func (t *Track) Info() TrackInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackInfo{
		State:       t.state,
		Events:      len(t.events),
		Loop:        t.loop,
		RecordStart: t.recordStart,
		RecordStop:  t.recordStop,
		PlayStart:   t.playStart,
		Watermark:   t.watermark,
		Wraps:       t.wraps,
	}
}

// arm requests the next playback callback. Caller holds t.mu.
func (t *Track) arm() error {
	gen := t.gen
	if err := t.seq.After(t.period, func() { t.onCallback(gen) }); err != nil {
		return fmt.Errorf("arm playback callback: %w", err)
	}
	return nil
}

// onCallback runs on the sequencer's thread. Callbacks armed before the
// last PlayStart, or after PlayStop, end their chain here.
func (t *Track) onCallback(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || !t.state.Playing() {
		return
	}
	if err := t.advance(); err != nil {
		debug.Warn("track", "advance: %v", err)
	}
}

// advance is one playback pass followed by re-arming. Caller holds t.mu.
func (t *Track) advance() error {
	now := t.seq.Tick()

	if t.loop > 0 {
		elapsed := now - t.playStart
		if remaining := t.loop - elapsed; remaining < 0 {
			// The current cycle is over. Move the cycle start forward by
			// whole loops so offsets keep their phase, however late we are.
			k := (elapsed - 1) / t.loop
			t.playStart += k * t.loop
			t.wraps += int(k)
			t.watermark = max(t.watermark, now)
			if k > 1 {
				debug.Warn("track", "callback %d ticks late, skipped %d loop cycles", elapsed-t.loop, k-1)
			}
		}
	}

	return errors.Join(t.scheduleAhead(now), t.arm())
}

// scheduleAhead hands the sequencer every event whose target tick lies in
// [watermark, now+2*period), across as many loop cycles as that window
// spans, then moves the watermark past the latest tick handed over.
// Caller holds t.mu.
func (t *Track) scheduleAhead(now int64) error {
	if t.loop <= 0 || len(t.events) == 0 {
		return nil
	}
	horizon := now + 2*t.period
	from := t.watermark
	next := from

	var errs []error
	for start := t.playStart; start < horizon; start += t.loop {
		for _, r := range t.events {
			// Events beyond the frozen loop belong to a longer take that
			// has not been stopped yet.
			if r.Offset > t.loop {
				break
			}
			at := start + r.Offset
			if at >= horizon {
				break
			}
			if at < from {
				continue
			}
			if err := t.seq.ScheduleAt(t.dst, at, r.Event); err != nil {
				errs = append(errs, fmt.Errorf("schedule %s at %d: %w", r.Event, at, err))
			}
			next = max(next, at+1)
		}
	}
	t.watermark = next
	return errors.Join(errs...)
}
