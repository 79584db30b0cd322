// Package transport defines the interfaces for the message queue
// collaborator. The abstraction keeps the pipeline independent of a
// specific broker; the Pub/Sub implementation lives alongside, and the
// memory subpackage provides a capacity-configurable double for tests.
package transport

import (
	"context"
	"fmt"
)

// Envelope is a size-bounded group of serialized records sent together.
// It grows by TryAdd and becomes immutable once sent.
type Envelope interface {
	// TryAdd appends a serialized record, returning false when the
	// envelope's capacity would be exceeded. A message larger than the
	// whole budget is rejected even on an empty envelope.
	TryAdd(message []byte) bool

	// Count returns the number of messages in the envelope.
	Count() int

	// Bytes returns the accumulated payload size.
	Bytes() int
}

// Sender transmits envelopes to one queue.
type Sender interface {
	NewEnvelope() Envelope
	Send(ctx context.Context, envelope Envelope) error
	Close() error
}

// Client is an established connection to the broker.
type Client interface {
	// OpenSender binds a sender to the named queue. Opening the sender
	// doubles as the pre-flight reachability check: it fails if the
	// queue does not exist or the broker is unreachable.
	OpenSender(ctx context.Context, queue string) (Sender, error)

	Close() error
}

// ConnectionError indicates the broker is unreachable or rejected an
// operation. It is fatal for the phase it occurs in.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
