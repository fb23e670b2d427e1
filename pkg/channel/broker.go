package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPublishRetries bounds publish attempts after the first.
	DefaultPublishRetries = 3

	// DefaultConnectTimeout bounds how long Connect keeps retrying.
	DefaultConnectTimeout = 10 * time.Second
)

// Broker is a Transport over Redis pub/sub.
// The broker is thread-safe and can be used concurrently from multiple goroutines.
type Broker struct {
	rdb            *redis.Client
	origin         string
	logger         *slog.Logger
	publishRetries uint64
	connectTimeout time.Duration
	connected      atomic.Bool

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBrokerLogger sets the broker's logger.
func WithBrokerLogger(l *slog.Logger) BrokerOption {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPublishRetries overrides DefaultPublishRetries.
func WithPublishRetries(n uint64) BrokerOption {
	return func(b *Broker) { b.publishRetries = n }
}

// WithConnectTimeout overrides DefaultConnectTimeout. Values <= 0 are ignored.
func WithConnectTimeout(d time.Duration) BrokerOption {
	return func(b *Broker) {
		if d > 0 {
			b.connectTimeout = d
		}
	}
}

// NewBroker creates a broker. It is not usable until Connect succeeds.
func NewBroker(redisOpts *redis.Options, opts ...BrokerOption) (*Broker, error) {
	if redisOpts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	b := &Broker{
		rdb:            redis.NewClient(redisOpts),
		origin:         "broker-" + uuid.New().String(),
		logger:         slog.Default(),
		publishRetries: DefaultPublishRetries,
		connectTimeout: DefaultConnectTimeout,
		handles:        make(map[*Handle]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "broker")
	return b, nil
}

// NewBrokerFromURL parses a redis:// URL and creates a broker.
func NewBrokerFromURL(url string, opts ...BrokerOption) (*Broker, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewBroker(redisOpts, opts...)
}

// Client exposes the underlying Redis client so stores can share the
// connection pool.
func (b *Broker) Client() *redis.Client {
	return b.rdb
}

// Name implements Transport.
func (b *Broker) Name() string { return "redis" }

// Connected implements Transport.
func (b *Broker) Connected() bool {
	return b.connected.Load()
}

// Connect pings Redis with exponential backoff until it answers or the
// connect timeout elapses.
func (b *Broker) Connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = b.connectTimeout

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := b.rdb.Ping(ctx).Err()
		if err != nil {
			b.logger.Warn("connect_failed", "attempt", attempt, "error", err.Error())
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		b.setConnected(false)
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	b.setConnected(true)
	return nil
}

// Monitor pings Redis every interval and keeps Connected current until ctx
// is cancelled.
func (b *Broker) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := b.rdb.Ping(pingCtx).Err()
			cancel()
			b.setConnected(err == nil)
		}
	}
}

func (b *Broker) setConnected(up bool) {
	if prev := b.connected.Swap(up); prev != up {
		if up {
			b.logger.Info("transport_connected")
		} else {
			b.logger.Warn("transport_disconnected")
		}
	}
}

// Subscribe implements Transport. It waits for Redis to confirm the
// subscription so that anything triggered afterwards is delivered.
func (b *Broker) Subscribe(ctx context.Context, channelID string) (*Handle, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id cannot be empty")
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	pubsub := b.rdb.Subscribe(ctx, channelID)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		b.setConnected(false)
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrTransportUnavailable, channelID, err)
	}

	var h *Handle
	h = newHandle(channelID, func() {
		_ = pubsub.Close()
		b.mu.Lock()
		delete(b.handles, h)
		b.mu.Unlock()
	})

	b.mu.Lock()
	b.handles[h] = struct{}{}
	b.mu.Unlock()

	go b.receive(h, pubsub)
	return h, nil
}

// receive decodes messages and hands them to h until either side closes.
func (b *Broker) receive(h *Handle, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				// Skip the message; the subscription continues.
				b.logger.Warn("envelope_rejected", "channel", msg.Channel, "error", err.Error())
				continue
			}
			if !h.enqueue(env, time.Time{}) {
				return
			}
		}
	}
}

// Trigger implements Transport. Publishing is retried with exponential
// backoff; after the last failure the broker is marked disconnected.
func (b *Broker) Trigger(ctx context.Context, channelID string, seq uint64, ev Event) error {
	if !b.Connected() {
		return ErrTransportUnavailable
	}
	env, err := NewEnvelope(b.origin, seq, ev)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	err = backoff.Retry(func() error {
		if err := b.rdb.Publish(ctx, channelID, data).Err(); err != nil {
			if errors.Is(err, redis.ErrClosed) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, b.publishRetries), ctx))
	if err != nil {
		b.setConnected(false)
		return fmt.Errorf("%w: publish %s to %s: %v", ErrTransportUnavailable, env.Type, channelID, err)
	}
	return nil
}

// Unsubscribe implements Transport.
func (b *Broker) Unsubscribe(h *Handle) error {
	if h == nil {
		return nil
	}
	return h.Close()
}

// Close implements Transport.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	handles := make([]*Handle, 0, len(b.handles))
	for h := range b.handles {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
	b.setConnected(false)
	return b.rdb.Close()
}
