package channel

import (
	"context"
	"errors"
)

var (
	// ErrTransportUnavailable means the transport cannot currently reach its
	// backend. Callers should fail fast and retry later.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Transport is the realtime channel contract shared by Broker and Mock.
type Transport interface {
	// Subscribe opens a handle on channelID. The subscription is live when
	// Subscribe returns.
	Subscribe(ctx context.Context, channelID string) (*Handle, error)

	// Trigger publishes ev on channelID, stamped with the publisher's
	// per-match sequence number.
	Trigger(ctx context.Context, channelID string, seq uint64, ev Event) error

	// Unsubscribe closes h. Closing twice is a no-op.
	Unsubscribe(h *Handle) error

	// Connected reports whether the backend is currently reachable.
	Connected() bool

	// Name identifies the implementation ("redis" or "mock").
	Name() string

	// Close releases every handle and the backend connection.
	Close() error
}
