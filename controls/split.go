package controls

import (
	"errors"
	"fmt"
	"sync"

	"go-looper/midi"
)

// NumSplits is the only keyboard split layout supported.
const NumSplits = 4

// ErrSplitCount is returned for any split count other than NumSplits.
var ErrSplitCount = errors.New("unsupported split count")

// splitBounds are the [low, high) key ranges of the four splits.
var splitBounds = [NumSplits][2]uint8{
	{0, 36},
	{36, 60},
	{60, 84},
	{84, 128},
}

// SplitHandler re-channels notes in frozen keyboard splits. Pressing a split
// button freezes that split onto the channel the button was sent on;
// releasing it lets notes through untouched again.
type SplitHandler struct {
	mu       sync.Mutex
	table    Map
	frozen   [NumSplits]bool
	channels [NumSplits]uint8
}

// NewSplitHandler fails for any count but NumSplits.
func NewSplitHandler(count int, table Map) (*SplitHandler, error) {
	if count != NumSplits {
		return nil, fmt.Errorf("%w: %d (only %d splits are supported)", ErrSplitCount, count, NumSplits)
	}
	return &SplitHandler{table: table}, nil
}

func (h *SplitHandler) HandleMIDI(ev *midi.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case ev.Type == midi.CC:
		a := h.table.Lookup(ev.Control())
		if a.Kind != KindSplitButton {
			return nil
		}
		i := a.Index - 1
		h.frozen[i] = ev.Value() > midi.ButtonThreshold
		h.channels[i] = ev.Channel
	case ev.IsNote():
		for i, b := range splitBounds {
			if h.frozen[i] && ev.Note >= b[0] && ev.Note < b[1] {
				ev.Channel = h.channels[i]
			}
		}
	}
	return nil
}
