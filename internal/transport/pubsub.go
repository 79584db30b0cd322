package transport

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Pub/Sub caps a publish request at 10MB; the default envelope budget
// stays under it to leave room for message framing.
const defaultEnvelopeBytes = 9 << 20

// PubSubConfig controls the Pub/Sub transport.
type PubSubConfig struct {
	ProjectID string
	// EnvelopeMaxBytes bounds each envelope's payload. Zero selects the
	// default budget.
	EnvelopeMaxBytes int
	// ClientOptions are forwarded to the Pub/Sub client, used by tests
	// to target a fake server.
	ClientOptions []option.ClientOption
}

// PubSubClient implements Client on Google Cloud Pub/Sub, authenticating
// via Application Default Credentials.
type PubSubClient struct {
	client        *pubsub.Client
	envelopeBytes int
}

// ConnectPubSub establishes the Pub/Sub connection.
func ConnectPubSub(ctx context.Context, cfg PubSubConfig) (*PubSubClient, error) {
	if cfg.ProjectID == "" {
		return nil, &ConnectionError{Op: "connect", Err: fmt.Errorf("project id is empty")}
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	budget := cfg.EnvelopeMaxBytes
	if budget <= 0 {
		budget = defaultEnvelopeBytes
	}
	return &PubSubClient{client: client, envelopeBytes: budget}, nil
}

// OpenSender verifies the topic exists and returns a sender bound to it.
func (c *PubSubClient) OpenSender(ctx context.Context, queue string) (Sender, error) {
	topic := c.client.Topic(queue)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: fmt.Sprintf("check topic %q", queue), Err: err}
	}
	if !exists {
		return nil, &ConnectionError{Op: "open sender", Err: fmt.Errorf("topic %q does not exist", queue)}
	}
	return &pubsubSender{topic: topic, envelopeBytes: c.envelopeBytes}, nil
}

// Close releases the client connection.
func (c *PubSubClient) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

type pubsubSender struct {
	topic         *pubsub.Topic
	envelopeBytes int
}

func (s *pubsubSender) NewEnvelope() Envelope {
	return &byteBudgetEnvelope{maxBytes: s.envelopeBytes}
}

// Send publishes every message in the envelope and waits for all of them
// to be acknowledged. Any publish failure surfaces as a ConnectionError.
func (s *pubsubSender) Send(ctx context.Context, envelope Envelope) error {
	env, ok := envelope.(*byteBudgetEnvelope)
	if !ok {
		return fmt.Errorf("pubsub sender: foreign envelope type %T", envelope)
	}
	results := make([]*pubsub.PublishResult, 0, len(env.messages))
	for _, message := range env.messages {
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{Data: message}))
	}
	for _, result := range results {
		if _, err := result.Get(ctx); err != nil {
			return &ConnectionError{Op: "publish", Err: err}
		}
	}
	return nil
}

func (s *pubsubSender) Close() error {
	s.topic.Stop()
	return nil
}

// byteBudgetEnvelope accumulates messages under a byte budget.
type byteBudgetEnvelope struct {
	maxBytes int
	bytes    int
	messages [][]byte
}

func (e *byteBudgetEnvelope) TryAdd(message []byte) bool {
	if e.bytes+len(message) > e.maxBytes {
		return false
	}
	e.messages = append(e.messages, append([]byte(nil), message...))
	e.bytes += len(message)
	return true
}

func (e *byteBudgetEnvelope) Count() int { return len(e.messages) }

func (e *byteBudgetEnvelope) Bytes() int { return e.bytes }
