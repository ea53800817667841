// Package sequencer is the shared tick clock and the time-ordered event
// queue that tracks schedule their playback through.
package sequencer

import (
	"container/heap"
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go-looper/debug"
	"go-looper/midi"
)

// DefaultTicksPerSecond gives one tick per millisecond.
const DefaultTicksPerSecond = 1000

var (
	ErrStopped       = errors.New("sequencer stopped")
	ErrNoDestination = errors.New("no destination sink")
	ErrNoCallback    = errors.New("nil callback")
)

// Sequencer delivers queued events to their sinks and runs one-shot
// callbacks at their tick. Enqueueing never blocks on delivery; everything
// is delivered from the Run goroutine.
type Sequencer struct {
	mu             sync.Mutex
	ticksPerSecond int64
	t0             time.Time
	now            func() time.Time

	queue   queue
	nextSeq uint64
	stopped bool

	interruptChan chan struct{} // queue head may have changed
}

// New creates a sequencer whose clock starts now.
func New(ticksPerSecond int64) *Sequencer {
	if ticksPerSecond <= 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	s := &Sequencer{
		ticksPerSecond: ticksPerSecond,
		now:            time.Now,
		interruptChan:  make(chan struct{}, 1),
	}
	s.t0 = s.now()
	return s
}

// Tick returns the ticks elapsed since the clock started.
func (s *Sequencer) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickAt(s.now())
}

// TicksPerSecond returns the clock resolution.
func (s *Sequencer) TicksPerSecond() int64 { return s.ticksPerSecond }

func (s *Sequencer) tickAt(t time.Time) int64 {
	d := t.Sub(s.t0)
	if d < 0 {
		return 0
	}
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return sec*s.ticksPerSecond + rem*s.ticksPerSecond/int64(time.Second)
}

// timeOf returns the first instant at which Tick reaches tick.
func (s *Sequencer) timeOf(tick int64) time.Time {
	sec := tick / s.ticksPerSecond
	rem := tick % s.ticksPerSecond
	ns := (rem*int64(time.Second) + s.ticksPerSecond - 1) / s.ticksPerSecond
	return s.t0.Add(time.Duration(sec)*time.Second + time.Duration(ns))
}

// ScheduleAt queues ev for delivery to dst once the clock reaches tick.
// Ticks in the past are delivered on the next dispatch.
func (s *Sequencer) ScheduleAt(dst midi.Sink, tick int64, ev midi.Event) error {
	if dst == nil {
		return ErrNoDestination
	}
	return s.push(&item{tick: tick, dst: dst, ev: ev})
}

// After runs fn on the dispatch goroutine, ticks from now.
func (s *Sequencer) After(ticks int64, fn func()) error {
	if fn == nil {
		return ErrNoCallback
	}
	return s.push(&item{tick: s.Tick() + ticks, fn: fn})
}

// Send delivers ev to dst immediately, bypassing the queue.
func (s *Sequencer) Send(dst midi.Sink, ev midi.Event) error {
	if dst == nil {
		return ErrNoDestination
	}
	return dst.Send(ev)
}

// Pending returns the number of queued events and callbacks.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sequencer) push(it *item) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	it.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.queue, it)
	s.mu.Unlock()

	s.interrupt()
	return nil
}

func (s *Sequencer) interrupt() {
	select {
	case s.interruptChan <- struct{}{}:
	default:
	}
}

// Stop discards everything queued and rejects further scheduling. Run
// returns once it notices.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()
	s.interrupt()
}

// Run is the dispatch loop. It returns when ctx is done or Stop is called.
func (s *Sequencer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer s.Stop()

	for {
		s.dispatchDue()

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return nil
		}
		idle := len(s.queue) == 0
		var wait time.Duration
		if !idle {
			wait = s.timeOf(s.queue[0].tick).Sub(s.now())
		}
		s.mu.Unlock()

		if !idle && wait <= 0 {
			continue
		}

		// With nothing queued, sleep until the next push.
		var timerC <-chan time.Time
		var timer *time.Timer
		if !idle {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.interruptChan:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// dispatchDue pops every item due by now, in (tick, insertion) order, and
// delivers it outside the lock so callbacks can schedule more.
func (s *Sequencer) dispatchDue() int {
	s.mu.Lock()
	now := s.tickAt(s.now())
	var due []*item
	for len(s.queue) > 0 && s.queue[0].tick <= now {
		due = append(due, heap.Pop(&s.queue).(*item))
	}
	s.mu.Unlock()

	for _, it := range due {
		if it.fn != nil {
			it.fn()
			continue
		}
		if err := it.dst.Send(it.ev); err != nil {
			debug.LogEvery(50, "seq", "deliver %s at %d: %v", it.ev, it.tick, err)
		}
	}
	return len(due)
}
