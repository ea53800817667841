package midi

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string

	// Decoded channel messages from the device
	Events() <-chan Event

	// Lifecycle
	Close() error
}
