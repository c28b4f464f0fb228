// Package mq carries verification mail from signup to the delivery
// worker over a message broker. RabbitMQ and Google Cloud Pub/Sub
// backends are available, selected by configuration; each binds to its
// queue at construction.
package mq

import "context"

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. A non-nil error nacks the message for
// redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend publishes and consumes on the queue it was constructed with.
type Backend interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
