package looper

import (
	"errors"
	"sort"
	"sync"

	"go-looper/midi"
)

// dispatched is one ScheduleAt call as seen by fakeSeq.
type dispatched struct {
	at       int64 // target tick
	handedAt int64 // clock when ScheduleAt was called
	ev       midi.Event
}

type timer struct {
	at int64
	fn func()
}

// fakeSeq is a manual clock. Callbacks run only when the test advances it.
type fakeSeq struct {
	mu      sync.Mutex
	now     int64
	sent    []dispatched
	timers  []timer
	reject  func(tick int64) bool
	noTimer bool
}

var errRejected = errors.New("rejected")

func (f *fakeSeq) Tick() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeSeq) set(now int64) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *fakeSeq) ScheduleAt(dst midi.Sink, tick int64, ev midi.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != nil && f.reject(tick) {
		return errRejected
	}
	f.sent = append(f.sent, dispatched{at: tick, handedAt: f.now, ev: ev})
	return nil
}

func (f *fakeSeq) After(ticks int64, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noTimer {
		return errRejected
	}
	f.timers = append(f.timers, timer{at: f.now + ticks, fn: fn})
	return nil
}

// runUntil fires every callback due at or before end, each exactly on its
// tick, then leaves the clock at end. observe runs after each callback.
func (f *fakeSeq) runUntil(end int64, observe func()) {
	for {
		f.mu.Lock()
		if len(f.timers) == 0 {
			f.mu.Unlock()
			break
		}
		sort.SliceStable(f.timers, func(i, j int) bool { return f.timers[i].at < f.timers[j].at })
		next := f.timers[0]
		if next.at > end {
			f.mu.Unlock()
			break
		}
		f.timers = f.timers[1:]
		f.now = next.at
		f.mu.Unlock()

		next.fn()
		if observe != nil {
			observe()
		}
	}
	f.set(end)
}

// fireLate runs the callbacks that are pending right now at tick, however
// far past their due tick that is.
func (f *fakeSeq) fireLate(tick int64) {
	f.mu.Lock()
	pending := f.timers
	f.timers = nil
	f.now = tick
	f.mu.Unlock()

	for _, t := range pending {
		t.fn()
	}
}

func (f *fakeSeq) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *fakeSeq) handed() []dispatched {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatched, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSeq) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

// recordAt records evs on t at the given ticks, in order.
func recordAt(seq *fakeSeq, t *Track, ticks []int64, evs []midi.Event) {
	for i, tick := range ticks {
		seq.set(tick)
		t.MaybeRecord(evs[i])
	}
}
