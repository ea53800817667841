package controls

import (
	"errors"

	"go-looper/midi"
)

// Router feeds every inbound event through the handler chain, in order, and
// then plays it live on the thru sink.
type Router struct {
	handlers []midi.Handler
	thru     midi.Sink
}

// NewRouter builds a router. thru may be nil to disable live playing.
func NewRouter(thru midi.Sink, handlers ...midi.Handler) *Router {
	return &Router{handlers: handlers, thru: thru}
}

// Dispatch runs the chain. A failing handler does not stop the others; all
// failures are returned joined.
func (r *Router) Dispatch(ev midi.Event) error {
	var errs []error
	for _, h := range r.handlers {
		if err := h.HandleMIDI(&ev); err != nil {
			errs = append(errs, err)
		}
	}
	if r.thru != nil {
		if err := r.thru.Send(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
