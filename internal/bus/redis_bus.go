package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/config"
)

// RedisBus is the primary broadcast backend on Redis pub/sub.
type RedisBus struct {
	rdb *redis.Client
	log zerolog.Logger

	mu     sync.Mutex
	closed bool
	stops  []func()
}

// NewRedisBus creates a RedisBus over an existing client.
func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		rdb: rdb,
		log: log.With().Str("component", "redis_bus").Logger(),
	}
}

// Publish fires the message at the broadcast channel. Subscriber count
// is ignored: zero listeners is not an error.
func (b *RedisBus) Publish(ctx context.Context, msgType string, payload any) error {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, config.CacheKey.BroadcastChannel(), raw).Err()
}

// Subscribe starts a goroutine draining the pub/sub channel into
// handler. The returned function stops that goroutine.
func (b *RedisBus) Subscribe(handler Handler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.BroadcastChannel())

	// Force the subscription to be established before returning so a
	// publish immediately after Subscribe is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	go func() {
		ch := pubsub.Channel()
		for raw := range ch {
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				b.log.Warn().Err(err).Msg("Dropping malformed broadcast")
				continue
			}
			handler(msg)
		}
	}()

	stop := func() {
		cancel()
		_ = pubsub.Close()
	}
	b.mu.Lock()
	b.stops = append(b.stops, stop)
	b.mu.Unlock()
	return stop, nil
}

// Close stops all active subscriptions.
func (b *RedisBus) Close() error {
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
