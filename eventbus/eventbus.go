// Package eventbus fans messages out to topic subscribers, either inside the
// process or over NATS.
package eventbus

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

type Bus interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(topic string, handler MessageReceiver) error
	Close() error
}

// Publisher is the publishing half of a Bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg any) error
}

type MessageReceiver interface {
	Receive(ctx context.Context, msg any)
}

// ReceiverFunc adapts a function to MessageReceiver.
type ReceiverFunc func(ctx context.Context, msg any)

func (f ReceiverFunc) Receive(ctx context.Context, msg any) {
	f(ctx, msg)
}
