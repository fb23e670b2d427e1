package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMockDelay approximates network latency for local play.
const DefaultMockDelay = 500 * time.Millisecond

// Mock is an in-process Transport. Every envelope is encoded and decoded as
// it would be on the wire, then delivered to each handle on the channel after
// the configured delay, in trigger order.
type Mock struct {
	origin string
	delay  time.Duration

	mu     sync.RWMutex
	subs   map[string]map[*Handle]struct{}
	closed bool
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithDelay overrides DefaultMockDelay. Zero delivers immediately.
func WithDelay(d time.Duration) MockOption {
	return func(m *Mock) {
		if d >= 0 {
			m.delay = d
		}
	}
}

// NewMock creates an in-process transport.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		origin: "mock-" + uuid.New().String(),
		delay:  DefaultMockDelay,
		subs:   make(map[string]map[*Handle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Transport.
func (m *Mock) Name() string { return "mock" }

// Connected implements Transport. A mock is connected until closed.
func (m *Mock) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

// Subscribe implements Transport.
func (m *Mock) Subscribe(ctx context.Context, channelID string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, fmt.Errorf("channel id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	var h *Handle
	h = newHandle(channelID, func() { m.remove(channelID, h) })
	if m.subs[channelID] == nil {
		m.subs[channelID] = make(map[*Handle]struct{})
	}
	m.subs[channelID][h] = struct{}{}
	return h, nil
}

// Trigger implements Transport.
func (m *Mock) Trigger(ctx context.Context, channelID string, seq uint64, ev Event) error {
	env, err := NewEnvelope(m.origin, seq, ev)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	handles := make([]*Handle, 0, len(m.subs[channelID]))
	for h := range m.subs[channelID] {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	at := time.Now().Add(m.delay)
	for _, h := range handles {
		// Each handle gets its own decoded copy, as over the wire.
		copied, err := DecodeEnvelope(data)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.enqueue(copied, at)
	}
	return nil
}

// Unsubscribe implements Transport.
func (m *Mock) Unsubscribe(h *Handle) error {
	if h == nil {
		return nil
	}
	return h.Close()
}

// Close implements Transport.
func (m *Mock) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var handles []*Handle
	for _, set := range m.subs {
		for h := range set {
			handles = append(handles, h)
		}
	}
	m.subs = make(map[string]map[*Handle]struct{})
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
	return nil
}

func (m *Mock) remove(channelID string, h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.subs[channelID]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(m.subs, channelID)
		}
	}
}
