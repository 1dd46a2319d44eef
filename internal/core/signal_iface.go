package core

import "context"

// Frame is a raw binary payload.
type Frame []byte

// EventSource is a long-lived push transport. It surfaces inbound frames
// to its subscriber and reconnects itself; it never mutates session state.
type EventSource interface {
	// Run blocks until ctx is cancelled, maintaining the connection.
	Run(ctx context.Context) error
	// Frames is the inbound frame stream, consumed serially by the owner.
	Frames() <-chan Frame
}
