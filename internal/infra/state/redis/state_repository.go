package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"aura-board/internal/domain"
	"aura-board/internal/repository"
)

// RedisStateRepository implements repository.StateRepository on Redis pub/sub
// and counters.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository. Keys are namespaced
// with keyPrefix, "aura:" by default.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "aura:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) roomChangesChannel(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:changes", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) allChangesPattern() string {
	return r.keyPrefix + "room:*:changes"
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return r.keyPrefix + "ratelimit:" + key
}

// roomIDFromChannel extracts the room id from "<prefix>room:<id>:changes".
func (r *RedisStateRepository) roomIDFromChannel(channel string) (uint, bool) {
	rest := strings.TrimPrefix(channel, r.keyPrefix+"room:")
	if rest == channel {
		return 0, false
	}
	rest = strings.TrimSuffix(rest, ":changes")
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// PublishChange publishes ev as JSON on the room's channel.
func (r *RedisStateRepository) PublishChange(ctx context.Context, roomID uint, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal change event for room %d: %w", roomID, err)
	}
	channel := r.roomChangesChannel(roomID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"channel": channel,
			"event":   ev.Type,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish change for room %d: %w", roomID, err)
	}
	return nil
}

// SubscribeChanges opens one pattern subscription covering every room.
func (r *RedisStateRepository) SubscribeChanges(ctx context.Context) (repository.ChangeStream, error) {
	pattern := r.allChangesPattern()
	pubsub := r.client.PSubscribe(ctx, pattern)
	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to psubscribe %s: %w", pattern, err)
	}

	s := &changeStream{
		pubsub: pubsub,
		out:    make(chan repository.RoomChange, 256),
		done:   make(chan struct{}),
	}
	go s.pump(r)
	logrus.WithField("pattern", pattern).Info("Subscribed to room change feeds")
	return s, nil
}

type changeStream struct {
	pubsub    *redis.PubSub
	out       chan repository.RoomChange
	done      chan struct{}
	closeOnce sync.Once
}

func (s *changeStream) pump(r *RedisStateRepository) {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		logCtx := logrus.WithField("channel", msg.Channel)
		roomID, ok := r.roomIDFromChannel(msg.Channel)
		if !ok {
			logCtx.Warn("Ignoring message on unexpected channel")
			continue
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || !ev.Valid() {
			logCtx.WithError(err).Warn("Ignoring malformed change event")
			continue
		}
		select {
		case s.out <- repository.RoomChange{RoomID: roomID, Event: ev}:
		case <-s.done:
			return
		}
	}
}

func (s *changeStream) Changes() <-chan repository.RoomChange { return s.out }

func (s *changeStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// CheckRateLimit counts a hit with INCR and refreshes the window with EXPIRE
// in one pipeline. It returns true once the count exceeds limit.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.rateLimitKey(key)
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit pipeline for %s: %w", redisKey, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit INCR result for %s: %w", redisKey, err)
	}
	return count > int64(limit), nil
}
