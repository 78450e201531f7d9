package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/pkg/platform/sentinel"
)

const (
	grantKeyPrefix   = "grants:key:"
	clientIdxPrefix  = "grants:client:"
	clientIdxPadding = 24 * time.Hour // index entries outlive the longest grant TTL
)

// RedisStore is the production store for distributed deployments. Records are
// stored as JSON with a native TTL; a per-client set serves GetAllByClientID.
// The index is advisory: membership is re-checked against the primary key on
// read, so a stale index entry can never resurrect a removed grant.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock sets the clock function for testability.
func WithRedisClock(clock func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewRedis constructs a Redis-backed grant store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisRecord struct {
	Key       string            `json:"key"`
	Type      Type              `json:"type"`
	ClientID  string            `json:"client_id"`
	SubjectID string            `json:"subject_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

func (s *RedisStore) Put(ctx context.Context, record *Record) error {
	return s.write(ctx, record, false)
}

func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	return s.write(ctx, record, true)
}

func (s *RedisStore) write(ctx context.Context, record *Record, ifAbsent bool) error {
	payload, err := json.Marshal(redisRecord(*record))
	if err != nil {
		return fmt.Errorf("serialize grant: %w", err)
	}

	ttl := time.Duration(0)
	if !record.ExpiresAt.IsZero() {
		ttl = record.ExpiresAt.Sub(s.clock())
		if ttl <= 0 {
			return fmt.Errorf("grant already expired: %w", sentinel.ErrInvalidState)
		}
	}

	key := grantKeyPrefix + record.Key
	if ifAbsent {
		ok, err := s.client.SetNX(ctx, key, payload, ttl).Result()
		if err != nil {
			return fmt.Errorf("store grant: %w", err)
		}
		if !ok {
			return fmt.Errorf("grant key %q occupied: %w", record.Key, sentinel.ErrConflict)
		}
	} else if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}

	pipe := s.client.Pipeline()
	idx := clientIdxPrefix + record.ClientID
	pipe.SAdd(ctx, idx, record.Key)
	pipe.Expire(ctx, idx, clientIdxPadding)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index grant: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, grantKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("grant not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch grant: %w", err)
	}
	return decodeRedisRecord(raw)
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	// Fetch first so the client index can be pruned; absence is a no-op.
	raw, err := s.client.Get(ctx, grantKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch grant for removal: %w", err)
	}
	record, err := decodeRedisRecord(raw)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, grantKeyPrefix+key)
	pipe.SRem(ctx, clientIdxPrefix+record.ClientID, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove grant: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveAll(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) GetAllByClientID(ctx context.Context, clientID string) ([]*Record, error) {
	members, err := s.client.SMembers(ctx, clientIdxPrefix+clientID).Result()
	if err != nil {
		return nil, fmt.Errorf("list client grants: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var out []*Record
	var stale []any
	for _, member := range members {
		raw, err := s.client.Get(ctx, grantKeyPrefix+member).Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, member)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch grant %s: %w", member, err)
		}
		record, err := decodeRedisRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	if len(stale) > 0 {
		// Best-effort prune of expired index entries.
		_ = s.client.SRem(ctx, clientIdxPrefix+clientID, stale...).Err()
	}
	return out, nil
}

func decodeRedisRecord(raw []byte) (*Record, error) {
	var rr redisRecord
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("deserialize grant: %w", err)
	}
	record := Record(rr)
	return &record, nil
}
