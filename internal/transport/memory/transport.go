// Package memory provides an in-memory transport with configurable
// envelope capacity, used to exercise batching behavior in tests.
package memory

import (
	"context"
	"sync"

	"github.com/jobvago/scraper/internal/transport"
)

// Client implements transport.Client in memory. Capacity limits apply to
// every envelope created by its senders: MaxCount bounds messages per
// envelope, MaxBytes bounds payload bytes; zero means unbounded.
type Client struct {
	MaxCount int
	MaxBytes int

	OpenErr error
	SendErr error

	mu     sync.Mutex
	sender *Sender
	closed bool
}

// OpenSender returns the client's single sender, or the scripted error.
func (c *Client) OpenSender(_ context.Context, queue string) (transport.Sender, error) {
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sender == nil {
		c.sender = &Sender{
			Queue:    queue,
			maxCount: c.MaxCount,
			maxBytes: c.MaxBytes,
			sendErr:  c.SendErr,
		}
	}
	return c.sender, nil
}

// Close marks the client closed.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sender returns the sender opened by OpenSender, if any.
func (c *Client) Sender() *Sender {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sender
}

// Sender records every envelope it is asked to send.
type Sender struct {
	Queue string

	maxCount int
	maxBytes int
	sendErr  error

	mu        sync.Mutex
	envelopes [][][]byte
	closed    bool
}

// NewSender builds a standalone sender with the given capacity limits.
func NewSender(maxCount, maxBytes int) *Sender {
	return &Sender{maxCount: maxCount, maxBytes: maxBytes}
}

// NewEnvelope creates an envelope bounded by the sender's limits.
func (s *Sender) NewEnvelope() transport.Envelope {
	return &Envelope{maxCount: s.maxCount, maxBytes: s.maxBytes}
}

// Send records the envelope's messages, or fails with the scripted error.
func (s *Sender) Send(_ context.Context, envelope transport.Envelope) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	env, ok := envelope.(*Envelope)
	if !ok {
		return &transport.ConnectionError{Op: "send", Err: errForeignEnvelope}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([][]byte, len(env.messages))
	for i, message := range env.messages {
		batch[i] = append([]byte(nil), message...)
	}
	s.envelopes = append(s.envelopes, batch)
	return nil
}

// Close marks the sender closed.
func (s *Sender) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Envelopes returns the sent envelopes in order.
func (s *Sender) Envelopes() [][][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][][]byte(nil), s.envelopes...)
}

// Messages returns all sent messages across envelopes, in send order.
func (s *Sender) Messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, batch := range s.envelopes {
		out = append(out, batch...)
	}
	return out
}

// Closed reports whether Close was called.
func (s *Sender) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Envelope enforces the configured count and byte limits.
type Envelope struct {
	maxCount int
	maxBytes int
	bytes    int
	messages [][]byte
}

// TryAdd appends a message unless a capacity limit would be exceeded.
func (e *Envelope) TryAdd(message []byte) bool {
	if e.maxCount > 0 && len(e.messages) >= e.maxCount {
		return false
	}
	if e.maxBytes > 0 && e.bytes+len(message) > e.maxBytes {
		return false
	}
	e.messages = append(e.messages, append([]byte(nil), message...))
	e.bytes += len(message)
	return true
}

// Count returns the number of messages in the envelope.
func (e *Envelope) Count() int { return len(e.messages) }

// Bytes returns the accumulated payload size.
func (e *Envelope) Bytes() int { return e.bytes }

var errForeignEnvelope = &foreignEnvelopeError{}

type foreignEnvelopeError struct{}

func (*foreignEnvelopeError) Error() string { return "foreign envelope type" }
