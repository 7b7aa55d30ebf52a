package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/LeonPucin/dash-core/logger"
)

var _ Bus = (*NatsConn[struct{}])(nil)

// NatsConn publishes JSON encoded messages to NATS subjects and decodes
// received payloads into T before handing them to receivers.
type NatsConn[T any] struct {
	nc  *nats.Conn
	log *logger.Logger

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

func NewNatsBus[T any](url string, log *logger.Logger, opts ...nats.Option) (*NatsConn[T], error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect %s: %w", url, err)
	}
	return NewNatsBusConn[T](nc, log), nil
}

// NewNatsBusConn wraps an existing connection. Close drains it.
func NewNatsBusConn[T any](nc *nats.Conn, log *logger.Logger) *NatsConn[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &NatsConn[T]{nc: nc, log: log.Named("eventbus")}
}

func (eb *NatsConn[T]) Publish(_ context.Context, topic string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("eventbus: encode %s: %w", topic, err)
	}
	if err := eb.nc.Publish(topic, data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return ErrClosed
		}
		return fmt.Errorf("eventbus: publish %s: %w", topic, err)
	}
	return nil
}

func (eb *NatsConn[T]) Subscribe(topic string, handler MessageReceiver) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return ErrClosed
	}

	sub, err := eb.nc.Subscribe(topic, eb.consumedMessages(context.Background(), handler.Receive))
	if err != nil {
		return fmt.Errorf("eventbus: subscribe %s: %w", topic, err)
	}
	eb.subs = append(eb.subs, sub)
	return nil
}

// Close drains subscriptions and the connection.
func (eb *NatsConn[T]) Close() error {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return nil
	}
	eb.closed = true
	eb.mu.Unlock()

	return eb.nc.Drain()
}

func (eb *NatsConn[T]) consumedMessages(ctx context.Context, receiver func(ctx context.Context, msg any)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		v, err := deserialize[T](msg)
		if err != nil {
			eb.log.Warning("dropping undecodable message",
				logger.String("subject", msg.Subject),
				logger.Err(err),
			)
			return
		}
		receiver(ctx, v)
	}
}

func deserialize[T any](message *nats.Msg) (T, error) {
	var msg T
	err := json.Unmarshal(message.Data, &msg)
	return msg, err
}
