package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/store"
)

// StoreBus is the fallback broadcast backend for deployments without
// pub/sub: each publish overwrites a timestamped last-message marker in
// the durable store, and subscribers poll it for changes. Only the most
// recent message is observable, so rapid bursts may coalesce — the
// same guarantee the storage-event fallback gives browser tabs.
type StoreBus struct {
	kv       store.KV
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	closed bool
	stops  []func()
}

// NewStoreBus creates a StoreBus polling at interval (default 500ms).
func NewStoreBus(kv store.KV, interval time.Duration, log zerolog.Logger) *StoreBus {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &StoreBus{
		kv:       kv,
		interval: interval,
		log:      log.With().Str("component", "store_bus").Logger(),
	}
}

// Publish writes the last-message marker.
func (b *StoreBus) Publish(ctx context.Context, msgType string, payload any) error {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, config.CacheKey.BroadcastLastMessageKey(), string(raw))
}

// Subscribe polls the marker and invokes handler whenever a new message
// ID appears. A marker already present at subscribe time is skipped so
// subscribers only see messages published after they joined.
func (b *StoreBus) Subscribe(handler Handler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	lastID := ""
	if msg, ok := b.read(ctx); ok {
		lastID = msg.ID
	}

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg, ok := b.read(ctx)
				if !ok || msg.ID == lastID {
					continue
				}
				lastID = msg.ID
				handler(msg)
			}
		}
	}()

	b.mu.Lock()
	b.stops = append(b.stops, cancel)
	b.mu.Unlock()
	return cancel, nil
}

func (b *StoreBus) read(ctx context.Context) (Message, bool) {
	raw, err := b.kv.Get(ctx, config.CacheKey.BroadcastLastMessageKey())
	if errors.Is(err, store.ErrNotFound) {
		return Message{}, false
	}
	if err != nil {
		if ctx.Err() == nil {
			b.log.Warn().Err(err).Msg("Broadcast marker read failed")
		}
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		b.log.Warn().Err(err).Msg("Dropping malformed broadcast marker")
		return Message{}, false
	}
	return msg, true
}

// Close stops all active subscriptions.
func (b *StoreBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, stop := range b.stops {
		stop()
	}
	b.stops = nil
	return nil
}
