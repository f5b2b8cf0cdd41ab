// Package memory provides bounded, TTL-expiring per-user conversation
// memory backed by Redis. The store degrades rather than fails: when
// the backend is unreachable, reads return empty history and writes
// become logged no-ops, so a conversation continues without memory
// instead of erroring out.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aylahq/ayla-agent/internal/events"
)

// keyPrefix namespaces conversation memory in the shared Redis keyspace.
const keyPrefix = "user_memory:"

// Cmdable is the subset of the go-redis client the store uses. Tests
// substitute a fake; production passes *redis.Client.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Store is the per-user conversation memory.
type Store struct {
	rdb         Cmdable
	maxMessages int
	ttl         time.Duration
	logger      *slog.Logger
	bus         *events.Bus
}

// Option configures a Store.
type Option func(*Store)

// WithBus attaches an event bus for degradation events.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// NewStore creates a conversation memory store. maxMessages caps the
// stored turn count (oldest trimmed first); ttl is the expiry from the
// last write.
func NewStore(rdb Cmdable, maxMessages int, ttl time.Duration, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		rdb:         rdb,
		maxMessages: maxMessages,
		ttl:         ttl,
		logger:      logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeUserID strips every non-digit rune from a user identifier.
// "+55 (11) 99999-0000" and "5511999990000" address the same memory.
func NormalizeUserID(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Store) key(userID string) string {
	return keyPrefix + NormalizeUserID(userID)
}

// Get returns the stored turn history for a user, oldest first. Absent,
// expired, or unreachable all present the same way: an empty slice.
func (s *Store) Get(ctx context.Context, userID string) []string {
	data, err := s.rdb.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.degrade(ctx, "get", userID, err)
		return nil
	}

	var turns []string
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		s.logger.Warn("conversation memory corrupt, discarding",
			"user", NormalizeUserID(userID), "error", err)
		return nil
	}
	return turns
}

// Append adds turns to a user's history, trims to the configured cap
// (oldest first), and resets the TTL. Backend failure is a logged
// no-op: two concurrent appends for the same user may interleave in
// either order, last write wins on the trimmed list.
func (s *Store) Append(ctx context.Context, userID string, turns ...string) {
	if len(turns) == 0 {
		return
	}

	history := append(s.Get(ctx, userID), turns...)
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		s.logger.Error("marshal conversation memory", "error", err)
		return
	}

	if err := s.rdb.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		s.degrade(ctx, "append", userID, err)
		return
	}

	s.logger.Debug("conversation memory saved",
		"user", NormalizeUserID(userID), "turns", len(history))
}

// Clear deletes a user's history. Backend failure is logged, not
// surfaced — the entry expires on its own within the TTL anyway.
func (s *Store) Clear(ctx context.Context, userID string) {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		s.degrade(ctx, "clear", userID, err)
	}
}

// Ping reports backend reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Key returns the backend key for a user, for introspection endpoints.
func (s *Store) Key(userID string) string {
	return s.key(userID)
}

func (s *Store) degrade(ctx context.Context, op, userID string, err error) {
	s.logger.Warn("conversation memory unavailable, continuing without",
		"op", op, "user", NormalizeUserID(userID), "error", err)
	s.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceMemory,
		Kind:      events.KindMemoryDegraded,
		Data:      map[string]any{"user": NormalizeUserID(userID), "op": op},
	})
}
