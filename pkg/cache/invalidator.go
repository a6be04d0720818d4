package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Invalidator drops cached reads derived from data a write just changed.
// Each prefix removes the key itself and every key extending it.
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...Key) error
}

// LocalInvalidator invalidates a single process's store.
type LocalInvalidator struct {
	store *Store
}

func NewLocalInvalidator(store *Store) *LocalInvalidator {
	return &LocalInvalidator{store: store}
}

func (l *LocalInvalidator) Invalidate(_ context.Context, prefixes ...Key) error {
	for _, p := range prefixes {
		l.store.InvalidatePrefix(p)
	}
	return nil
}

// RedisConfig holds the connection used for cross-replica invalidation.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// RedisInvalidator invalidates the local store and publishes the prefixes on
// a Redis channel so every other replica drops them too.
type RedisInvalidator struct {
	client  *redis.Client
	store   *Store
	channel string
	nodeID  string
	logger  logrus.FieldLogger
}

type invalidationMessage struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// NewRedisInvalidator connects to Redis and fails if the server is unreachable.
func NewRedisInvalidator(config RedisConfig, store *Store, logger logrus.FieldLogger) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisInvalidator(client, store, config.Channel, logger), nil
}

func newRedisInvalidator(client *redis.Client, store *Store, channel string, logger logrus.FieldLogger) *RedisInvalidator {
	if channel == "" {
		channel = "climabill:cache:invalidate"
	}
	return &RedisInvalidator{
		client:  client,
		store:   store,
		channel: channel,
		nodeID:  uuid.NewString(),
		logger:  logger,
	}
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, prefixes ...Key) error {
	if len(prefixes) == 0 {
		return nil
	}

	keys := make([]string, len(prefixes))
	for i, p := range prefixes {
		keys[i] = p.String()
		r.store.invalidatePrefix(keys[i])
	}

	payload, err := sonic.Marshal(invalidationMessage{Origin: r.nodeID, Keys: keys})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Listen applies invalidations published by other replicas until ctx is done.
func (r *RedisInvalidator) Listen(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	r.logger.WithField("channel", r.channel).Info("Listening for cache invalidations")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.apply(msg.Payload)
		}
	}
}

func (r *RedisInvalidator) apply(payload string) int {
	var msg invalidationMessage
	if err := sonic.UnmarshalString(payload, &msg); err != nil {
		r.logger.WithError(err).Warn("Ignoring malformed invalidation message")
		return 0
	}
	if msg.Origin == r.nodeID {
		return 0
	}

	removed := 0
	for _, k := range msg.Keys {
		removed += r.store.invalidatePrefix(k)
	}
	r.logger.WithFields(logrus.Fields{
		"origin":  msg.Origin,
		"keys":    len(msg.Keys),
		"removed": removed,
	}).Debug("Applied remote cache invalidation")
	return removed
}

// Close releases the Redis connection.
func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}
