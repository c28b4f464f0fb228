package mailer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/contactsbook/apiserver/internal/mq"
)

// QueuePublisher hands verification mail off to the broker instead of
// sending it inline; the worker command consumes and delivers it.
type QueuePublisher struct {
	backend mq.Backend
}

func NewQueuePublisher(backend mq.Backend) *QueuePublisher {
	return &QueuePublisher{backend: backend}
}

// SendVerification publishes the mail payload to the bound queue.
func (p *QueuePublisher) SendVerification(ctx context.Context, to, username, token string) error {
	data, err := json.Marshal(VerificationMail{To: to, Username: username, Token: token})
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, data, map[string]string{"kind": "verification"})
	return err
}

// Worker consumes queued verification mail and delivers it over SMTP.
type Worker struct {
	backend mq.Backend
	sender  *SMTPSender
	logger  *slog.Logger
}

func NewWorker(backend mq.Backend, sender *SMTPSender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		backend: backend,
		sender:  sender,
		logger:  logger,
	}
}

// Run blocks consuming the queue until the context is cancelled.
// Malformed payloads are acked and dropped; delivery failures are
// nacked for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("mail worker started")
	return w.backend.Subscribe(ctx, func(ctx context.Context, msg mq.Message) error {
		var mail VerificationMail
		if err := json.Unmarshal(msg.Data, &mail); err != nil {
			w.logger.Error("dropping malformed mail message", "id", msg.ID, "error", err)
			return nil
		}
		return w.sender.Deliver(ctx, mail)
	})
}
