package sequencer

import "go-looper/midi"

// item is either an event for dst or a callback.
type item struct {
	tick int64
	seq  uint64 // insertion order, breaks ties within a tick
	dst  midi.Sink
	ev   midi.Event
	fn   func()
}

// queue is a container/heap min-heap ordered by (tick, seq).
type queue []*item

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].tick != q[j].tick {
		return q[i].tick < q[j].tick
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*item)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}
