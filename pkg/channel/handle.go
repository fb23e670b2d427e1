package channel

import (
	"context"
	"sync"
	"time"
)

// queueSize bounds pending deliveries per handle; enqueueing blocks beyond it.
const queueSize = 64

// HandlerFunc receives one envelope. Handlers on the same handle never run
// concurrently.
type HandlerFunc func(env *Envelope)

type delivery struct {
	env *Envelope
	at  time.Time // not before
}

// Handle is a live subscription to one channel.
// Caller must call Close (or the transport's Unsubscribe) when done.
type Handle struct {
	channelID string

	mu       sync.RWMutex
	handlers map[EventType][]HandlerFunc
	all      []HandlerFunc

	seen    *Seen
	queue   chan delivery
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	release func()
}

func newHandle(channelID string, release func()) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		channelID: channelID,
		handlers:  make(map[EventType][]HandlerFunc),
		seen:      NewSeen(DefaultSeenCapacity),
		queue:     make(chan delivery, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		release:   release,
	}
	go h.run()
	return h
}

// ChannelID returns the channel this handle is subscribed to.
func (h *Handle) ChannelID() string {
	return h.channelID
}

// Bind registers fn for envelopes of type t. Callbacks run in bind order.
func (h *Handle) Bind(t EventType, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[t] = append(h.handlers[t], fn)
}

// BindAll registers fn for every event type.
func (h *Handle) BindAll(fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all = append(h.all, fn)
}

// Done is closed once the handle stops delivering.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Close stops delivery and releases the subscription. Safe to call multiple
// times.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.cancel()
		if h.release != nil {
			h.release()
		}
	})
	return nil
}

// enqueue schedules env for delivery no earlier than at. It reports false
// if the handle is closed.
func (h *Handle) enqueue(env *Envelope, at time.Time) bool {
	select {
	case h.queue <- delivery{env: env, at: at}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Handle) run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case d := <-h.queue:
			if wait := time.Until(d.at); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-h.ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
			}
			h.dispatch(d.env)
		}
	}
}

func (h *Handle) dispatch(env *Envelope) {
	if !h.seen.Add(env.ID) {
		return
	}
	h.mu.RLock()
	fns := make([]HandlerFunc, 0, len(h.handlers[env.Type])+len(h.all))
	fns = append(fns, h.handlers[env.Type]...)
	fns = append(fns, h.all...)
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(env)
	}
}
