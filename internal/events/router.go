package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the default channel buffer size for subscribers.
const DefaultBufferSize = 100

// subscription holds a subscriber channel and the event types it wants.
// An empty filter means every event.
type subscription struct {
	ch     chan Event
	filter map[EventType]struct{}
}

func (s subscription) wants(t EventType) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[t]
	return ok
}

// Router fans events out from controllers to subscribers.
// Emit never blocks: a subscriber that falls behind loses events rather than
// stalling the controller that emitted them.
type Router struct {
	subs       []subscription
	bufferSize int
	logger     *slog.Logger
	dropped    atomic.Int64
	mu         sync.RWMutex
	closed     bool
}

// NewRouter creates a router with the given per-subscriber buffer size.
// If bufferSize is 0 or negative, DefaultBufferSize is used.
// If logger is nil, slog.Default() is used.
func NewRouter(bufferSize int, logger *slog.Logger) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Emit publishes an event to every interested subscriber.
// Safe to call concurrently and after Close (becomes a no-op).
func (r *Router) Emit(event Event) {
	if event == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	for _, sub := range r.subs {
		if !sub.wants(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			r.dropped.Add(1)
			r.logger.Warn("event dropped: subscriber channel full",
				"event_type", event.Type(),
				"source", event.Source(),
			)
		}
	}
}

// Subscribe returns a channel that receives all emitted events.
// The returned channel is closed when the router is closed.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.bufferSize)
}

// SubscribeBuffered returns a channel with the specified buffer size.
// The TUI uses a larger buffer since progress events arrive in bursts.
func (r *Router) SubscribeBuffered(size int, types ...EventType) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	sub := subscription{ch: make(chan Event, size)}
	if len(types) > 0 {
		sub.filter = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.filter[t] = struct{}{}
		}
	}
	r.subs = append(r.subs, sub)
	return sub.ch
}

// SubscribeTypes returns a default-sized channel that only receives the
// listed event types.
func (r *Router) SubscribeTypes(types ...EventType) <-chan Event {
	return r.SubscribeBuffered(r.bufferSize, types...)
}

// Unsubscribe removes a subscription and closes its channel.
// Unknown or already-removed channels are ignored.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.ch == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (r *Router) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes all subscriber channels. Emit becomes a no-op and Subscribe
// returns closed channels afterwards. Safe to call multiple times.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	for _, sub := range r.subs {
		close(sub.ch)
	}
	r.subs = nil
}
