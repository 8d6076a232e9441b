package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	reconnectAttempts = 3
	reconnectBackoff  = 500 * time.Millisecond
)

// remoteTier is the best-effort shared Redis layer. It is a single
// long-lived client with its own reconnect state machine; request
// handling never blocks on reconnection and every failure degrades to
// the memory tier or the fetcher.
type remoteTier struct {
	client *redis.Client
	store  *gocache.Cache[string]

	mu           sync.Mutex
	available    bool
	reconnecting bool
	gaveUp       bool
}

func newRemoteTier(address string, password string, database int) *remoteTier {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	tier := &remoteTier{
		client: client,
		store:  gocache.New[string](redisstore.NewRedis(client)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("address", address).Msg("Redis connect error")
		tier.scheduleReconnect()
	} else {
		tier.available = true
		log.Info().Str("address", address).Msg("Connected to Redis cache")
	}

	return tier
}

func (t *remoteTier) close() error {
	return t.client.Close()
}

func (t *remoteTier) get(ctx context.Context, key string) (string, bool) {
	t.mu.Lock()
	available := t.available
	t.mu.Unlock()

	if !available {
		return "", false
	}

	payload, err := t.store.Get(ctx, key)
	if err != nil {
		notFound := &store.NotFound{}
		if errors.As(err, &notFound) || errors.Is(err, redis.Nil) {
			return "", false
		}

		log.Error().Err(err).Str("key", key).Msg("Redis get error")
		t.markUnavailable()

		return "", false
	}

	return payload, true
}

func (t *remoteTier) set(ctx context.Context, key string, payload string, ttl time.Duration) {
	t.mu.Lock()
	available := t.available
	t.mu.Unlock()

	if !available {
		return
	}

	if err := t.store.Set(ctx, key, payload, store.WithExpiration(ttl)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Redis set error")
		t.markUnavailable()
	}
}

func (t *remoteTier) markUnavailable() {
	t.mu.Lock()
	t.available = false
	t.mu.Unlock()

	t.scheduleReconnect()
}

// scheduleReconnect probes the connection with a capped linear backoff
// and gives up for good after a few attempts, leaving the memory tier
// in charge. The one-time notice keeps a flapping Redis from flooding
// the log.
func (t *remoteTier) scheduleReconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reconnecting || t.gaveUp {
		return
	}
	t.reconnecting = true

	go func() {
		for attempt := 1; attempt <= reconnectAttempts; attempt++ {
			time.Sleep(time.Duration(attempt) * reconnectBackoff)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := t.client.Ping(ctx).Err()
			cancel()

			if err == nil {
				t.mu.Lock()
				t.available = true
				t.reconnecting = false
				t.mu.Unlock()

				log.Info().Msg("Redis connection restored")

				return
			}

			log.Debug().Err(err).Int("attempt", attempt).Msg("Redis reconnect failed")
		}

		t.mu.Lock()
		t.reconnecting = false
		t.gaveUp = true
		t.mu.Unlock()

		log.Warn().Msg("Redis unavailable, using memory cache")
	}()
}
