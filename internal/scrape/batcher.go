package scrape

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/transport"
)

// Batcher accumulates serialized records into transport envelopes and
// flushes each envelope as soon as it fills, preserving discovery order
// with no unbounded buffering. It is driven from a single goroutine.
type Batcher struct {
	sender   transport.Sender
	logger   *zap.Logger
	envelope transport.Envelope

	records   int
	envelopes int
}

// NewBatcher creates a Batcher over the sender.
func NewBatcher(sender transport.Sender, logger *zap.Logger) *Batcher {
	return &Batcher{sender: sender, logger: logger.Named("batcher")}
}

// Add serializes the record and appends it to the current envelope. When
// the envelope rejects the message as over capacity, the envelope is sent
// and the record starts a new one. A record that does not fit an empty
// envelope is an error.
func (b *Batcher) Add(ctx context.Context, record JobRecord) error {
	message, err := record.Marshal()
	if err != nil {
		return err
	}
	if b.envelope == nil {
		b.envelope = b.sender.NewEnvelope()
	}
	if b.envelope.TryAdd(message) {
		b.records++
		return nil
	}
	if b.envelope.Count() == 0 {
		return fmt.Errorf("record of %d bytes exceeds envelope capacity", len(message))
	}
	if err := b.send(ctx); err != nil {
		return err
	}
	b.envelope = b.sender.NewEnvelope()
	if !b.envelope.TryAdd(message) {
		return fmt.Errorf("record of %d bytes exceeds envelope capacity", len(message))
	}
	b.records++
	return nil
}

// Flush sends any non-empty remaining envelope. It is a no-op when
// nothing is pending, so calling it again after success is safe.
func (b *Batcher) Flush(ctx context.Context) error {
	if b.envelope == nil || b.envelope.Count() == 0 {
		return nil
	}
	if err := b.send(ctx); err != nil {
		return err
	}
	b.envelope = nil
	return nil
}

// Stats returns how many records and envelopes have been sent.
func (b *Batcher) Stats() (records, envelopes int) {
	return b.records - b.pending(), b.envelopes
}

func (b *Batcher) pending() int {
	if b.envelope == nil {
		return 0
	}
	return b.envelope.Count()
}

func (b *Batcher) send(ctx context.Context) error {
	count := b.envelope.Count()
	bytes := b.envelope.Bytes()
	if err := b.sender.Send(ctx, b.envelope); err != nil {
		return fmt.Errorf("send envelope of %d records: %w", count, err)
	}
	b.envelopes++
	b.logger.Info("envelope sent",
		zap.Int("records", count),
		zap.Int("bytes", bytes),
		zap.Int("envelopes_sent", b.envelopes),
	)
	return nil
}
