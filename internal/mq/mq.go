package mq

import (
	"context"
	"errors"
	"strings"

	"github.com/jjudge-oj/runlog/types"
)

// Message is one delivery from a broker.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A non-nil error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// CodeRunHandler processes one decoded code run event.
type CodeRunHandler func(ctx context.Context, event types.CodeRunEvent) error

// Backend is implemented by RabbitMQClient and PubSubClient.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ carries code run events over one channel of a Backend.
type MQ struct {
	backend Backend
	channel string
}

// New constructs an MQ that publishes to and consumes from channel.
func New(backend Backend, channel string) (*MQ, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("mq channel is required")
	}
	return &MQ{backend: backend, channel: channel}, nil
}

// Channel returns the queue or topic name events travel on.
func (m *MQ) Channel() string {
	return m.channel
}

// PublishCodeRun sends event as JSON, keyed by user for ordering.
func (m *MQ) PublishCodeRun(ctx context.Context, event types.CodeRunEvent) error {
	data, attrs, err := encodeCodeRunEvent(event)
	if err != nil {
		return err
	}
	if _, err := m.backend.Publish(ctx, m.channel, data, attrs); err != nil {
		return wrapPublishErr(err)
	}
	return nil
}

// SubscribeCodeRuns blocks delivering code run events to handler until ctx
// is done. Messages that are not code run events go to onInvalid, if set,
// and are acknowledged.
func (m *MQ) SubscribeCodeRuns(ctx context.Context, handler CodeRunHandler, onInvalid func(Message, error)) error {
	return m.backend.Subscribe(ctx, m.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeCodeRunEvent(msg)
		if err != nil {
			if onInvalid != nil {
				onInvalid(msg, err)
			}
			return nil
		}
		return handler(ctx, event)
	})
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
