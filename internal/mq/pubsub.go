package mq

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/contactsbook/apiserver/config"
)

// PubSubClient publishes to one topic and consumes its paired
// subscription.
type PubSubClient struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
}

// NewPubSubClient connects to the project and ensures the topic and its
// subscription exist.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, queue string) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	topic := client.Topic(queue)
	if exists, err := topic.Exists(ctx); err != nil {
		_ = client.Close()
		return nil, err
	} else if !exists {
		if topic, err = client.CreateTopic(ctx, queue); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}
	sub := client.Subscription(queue + suffix)
	if exists, err := sub.Exists(ctx); err != nil {
		_ = client.Close()
		return nil, err
	} else if !exists {
		sub, err = client.CreateSubscription(ctx, queue+suffix, pubsub.SubscriptionConfig{Topic: topic})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	return &PubSubClient{client: client, topic: topic, sub: sub}, nil
}

// Publish sends one message to the bound topic and returns the server
// message id.
func (p *PubSubClient) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return result.Get(ctx)
}

// Subscribe consumes the bound subscription until the context is
// cancelled. Handler errors nack for redelivery.
func (p *PubSubClient) Subscribe(ctx context.Context, handler Handler) error {
	return p.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		wrapped := Message{
			ID:         msg.ID,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, wrapped); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (p *PubSubClient) Close() error {
	return p.client.Close()
}
