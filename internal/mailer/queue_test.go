package mailer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactsbook/apiserver/internal/mq"
)

// fakeBackend records published messages and replays them to the
// subscriber handler.
type fakeBackend struct {
	published []mq.Message
	handleErr error
}

func (b *fakeBackend) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, mq.Message{ID: "msg-1", Data: data, Attributes: attrs})
	return "msg-1", nil
}

func (b *fakeBackend) Subscribe(ctx context.Context, handler mq.Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			b.handleErr = err
		}
	}
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func TestQueuePublisherPayload(t *testing.T) {
	backend := &fakeBackend{}
	publisher := NewQueuePublisher(backend)

	err := publisher.SendVerification(t.Context(), "new@example.com", "newbie", "tok-123")
	require.NoError(t, err)
	require.Len(t, backend.published, 1)

	var mail VerificationMail
	require.NoError(t, json.Unmarshal(backend.published[0].Data, &mail))
	assert.Equal(t, "new@example.com", mail.To)
	assert.Equal(t, "newbie", mail.Username)
	assert.Equal(t, "tok-123", mail.Token)
	assert.Equal(t, "verification", backend.published[0].Attributes["kind"])
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	backend := &fakeBackend{
		published: []mq.Message{{ID: "msg-1", Data: []byte("not json")}},
	}
	worker := NewWorker(backend, nil, nil)

	// The malformed message is acked without touching the sender.
	err := worker.Run(t.Context())
	require.NoError(t, err)
	assert.NoError(t, backend.handleErr)
}
