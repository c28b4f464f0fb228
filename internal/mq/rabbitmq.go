package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/contactsbook/apiserver/config"
)

// RabbitMQClient publishes and consumes on a single declared queue.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQClient dials the broker and declares the queue up front,
// so a misconfigured broker fails at startup rather than on the first
// signup.
func NewRabbitMQClient(cfg config.RabbitMQConfig, queue string) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	client := &RabbitMQClient{conn: conn, channel: ch, queue: queue}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	if _, err := ch.QueueDeclare(queue, cfg.QueueDurable, cfg.QueueAutoDelete, false, false, nil); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Publish sends one message to the bound queue and returns its id.
func (c *RabbitMQClient) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	id := randomID()
	err := c.channel.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   id,
		Headers:     headers,
		Body:        data,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Subscribe consumes the bound queue until the context is cancelled or
// the delivery channel closes. Handler errors nack for redelivery.
func (c *RabbitMQClient) Subscribe(ctx context.Context, handler Handler) error {
	tag := "mail-worker-" + randomID()
	deliveries, err := c.channel.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.channel.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: tableAttrs(delivery.Headers),
			}
			if err := handler(ctx, msg); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func tableAttrs(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		if s, ok := value.(string); ok {
			attrs[key] = s
			continue
		}
		attrs[key] = fmt.Sprint(value)
	}
	return attrs
}

func randomID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
