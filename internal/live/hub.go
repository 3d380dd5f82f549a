package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vbonduro/ecosort/internal/domain"
)

// feedRepository is the subset of store.FeedStore the hub needs.
type feedRepository interface {
	Append(ctx context.Context, rec domain.WasteRecord) error
	Trim(ctx context.Context, keep int) error
}

// subscriberBuffer bounds how many records a browser may fall behind before
// records are dropped for it.
const subscriberBuffer = 32

// Hub fans waste records out to every connected browser and records them in
// the live feed.
type Hub struct {
	mu       sync.Mutex
	subs     map[chan domain.WasteRecord]struct{}
	feed     feedRepository
	feedSize int
	logger   *slog.Logger
}

func NewHub(feed feedRepository, feedSize int, logger *slog.Logger) *Hub {
	return &Hub{
		subs:     make(map[chan domain.WasteRecord]struct{}),
		feed:     feed,
		feedSize: feedSize,
		logger:   logger,
	}
}

// Subscribe registers a listener. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan domain.WasteRecord, func()) {
	ch := make(chan domain.WasteRecord, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many listeners are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish stores rec in the feed and delivers it to every subscriber without
// blocking; a subscriber whose buffer is full misses rec.
func (h *Hub) Publish(ctx context.Context, rec domain.WasteRecord) {
	if h.feed != nil {
		if err := h.feed.Append(ctx, rec); err != nil {
			h.logger.Error("failed to store live waste record", "waste_id", rec.ID, "error", err)
		} else if err := h.feed.Trim(ctx, h.feedSize); err != nil {
			h.logger.Error("failed to trim live feed", "error", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- rec:
		default:
			h.logger.Warn("live subscriber lagging, dropping record", "waste_id", rec.ID)
		}
	}
}
