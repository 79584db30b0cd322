package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobvago/scraper/internal/transport"
)

func TestEnvelopeCountLimit(t *testing.T) {
	t.Parallel()

	sender := NewSender(2, 0)
	envelope := sender.NewEnvelope()

	assert.True(t, envelope.TryAdd([]byte("a")))
	assert.True(t, envelope.TryAdd([]byte("b")))
	assert.False(t, envelope.TryAdd([]byte("c")))
	assert.Equal(t, 2, envelope.Count())
}

func TestEnvelopeByteLimit(t *testing.T) {
	t.Parallel()

	sender := NewSender(0, 4)
	envelope := sender.NewEnvelope()

	assert.True(t, envelope.TryAdd([]byte("ab")))
	assert.True(t, envelope.TryAdd([]byte("cd")))
	assert.False(t, envelope.TryAdd([]byte("e")))
	assert.Equal(t, 4, envelope.Bytes())
}

func TestEnvelopeUnboundedByDefault(t *testing.T) {
	t.Parallel()

	sender := NewSender(0, 0)
	envelope := sender.NewEnvelope()
	for i := 0; i < 1000; i++ {
		require.True(t, envelope.TryAdd([]byte("payload")))
	}
	assert.Equal(t, 1000, envelope.Count())
}

func TestSenderRecordsEnvelopesInOrder(t *testing.T) {
	t.Parallel()

	sender := NewSender(0, 0)
	ctx := context.Background()

	first := sender.NewEnvelope()
	require.True(t, first.TryAdd([]byte("one")))
	require.NoError(t, sender.Send(ctx, first))

	second := sender.NewEnvelope()
	require.True(t, second.TryAdd([]byte("two")))
	require.True(t, second.TryAdd([]byte("three")))
	require.NoError(t, sender.Send(ctx, second))

	envelopes := sender.Envelopes()
	require.Len(t, envelopes, 2)
	assert.Len(t, envelopes[0], 1)
	assert.Len(t, envelopes[1], 2)

	messages := sender.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "one", string(messages[0]))
	assert.Equal(t, "two", string(messages[1]))
	assert.Equal(t, "three", string(messages[2]))
}

func TestClientOpenSenderIsSingleton(t *testing.T) {
	t.Parallel()

	client := &Client{MaxCount: 5}
	ctx := context.Background()

	first, err := client.OpenSender(ctx, "new-jobs-queue")
	require.NoError(t, err)
	second, err := client.OpenSender(ctx, "new-jobs-queue")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "new-jobs-queue", client.Sender().Queue)
}

func TestClientScriptedErrors(t *testing.T) {
	t.Parallel()

	openErr := &transport.ConnectionError{Op: "open sender", Err: errors.New("down")}
	client := &Client{OpenErr: openErr}
	_, err := client.OpenSender(context.Background(), "q")
	assert.ErrorIs(t, err, openErr)

	sendErr := errors.New("broker rejected")
	failing := &Client{SendErr: sendErr}
	sender, err := failing.OpenSender(context.Background(), "q")
	require.NoError(t, err)
	envelope := sender.NewEnvelope()
	require.True(t, envelope.TryAdd([]byte("x")))
	assert.ErrorIs(t, sender.Send(context.Background(), envelope), sendErr)
}
