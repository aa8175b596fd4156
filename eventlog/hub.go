package eventlog

import (
	"context"
	"sync"

	"cafichain/core"
)

const (
	hubHistoryLimit  = 256
	subscriberBuffer = 32
)

// Hub fans committed receipts out to live subscribers and keeps a short
// history so reconnecting clients can resume from a sequence cursor.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]chan *core.Receipt
	nextID  uint64
	history []*core.Receipt
	dropped uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan *core.Receipt)}
}

// Publish implements core.Sink. Subscribers that are not keeping up miss the
// receipt rather than stall the processor.
func (h *Hub) Publish(_ context.Context, receipt *core.Receipt) error {
	if h == nil || receipt == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, receipt)
	if len(h.history) > hubHistoryLimit {
		excess := len(h.history) - hubHistoryLimit
		trimmed := make([]*core.Receipt, hubHistoryLimit)
		copy(trimmed, h.history[excess:])
		h.history = trimmed
	}
	for _, ch := range h.subs {
		select {
		case ch <- receipt:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscribe registers a subscriber for receipts with a sequence above since.
// Buffered history is returned as backlog. The cancel function is idempotent
// and also runs when ctx ends; either way the watcher goroutine exits.
func (h *Hub) Subscribe(ctx context.Context, since uint64) (<-chan *core.Receipt, func(), []*core.Receipt) {
	updates := make(chan *core.Receipt, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = updates
	backlog := make([]*core.Receipt, 0, len(h.history))
	for _, receipt := range h.history {
		if receipt.Sequence > since {
			backlog = append(backlog, receipt)
		}
	}
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}
	return updates, cancel, backlog
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
