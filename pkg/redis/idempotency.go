package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var ErrFingerprintMismatch = errors.New("idempotency key reused for a different request")

type ReservationState int

const (
	// ReservationNew means the caller owns the key and should run the request.
	ReservationNew ReservationState = iota
	// ReservationCompleted means a stored response should be replayed.
	ReservationCompleted
	// ReservationPending means another request holding the key is still running.
	ReservationPending
)

// IdempotencyRecord is what is stored under a key, as JSON.
type IdempotencyRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Completed   bool      `json:"completed"`
	Status      int       `json:"status,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Reservation struct {
	State  ReservationState
	Record *IdempotencyRecord
}

// IdempotencyStore reserves keys with SETNX and keeps the first response
// for replay until the TTL runs out.
type IdempotencyStore struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewIdempotencyStore(rdb redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, prefix: "idem:"}
}

func (s *IdempotencyStore) key(k string) string {
	return s.prefix + k
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (Reservation, error) {
	pending, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint, CreatedAt: time.Now()})
	if err != nil {
		return Reservation{}, err
	}

	ok, err := s.rdb.SetNX(ctx, s.key(key), pending, s.ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return Reservation{State: ReservationNew}, nil
	}

	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, fingerprint)
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("load idempotency key: %w", err)
	}

	var record IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return Reservation{}, fmt.Errorf("decode idempotency record: %w", err)
	}
	if record.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if !record.Completed {
		return Reservation{State: ReservationPending, Record: &record}, nil
	}
	return Reservation{State: ReservationCompleted, Record: &record}, nil
}

func (s *IdempotencyStore) SaveResponse(ctx context.Context, key, fingerprint string, status int, contentType string, body []byte) error {
	data, err := json.Marshal(IdempotencyRecord{
		Fingerprint: fingerprint,
		Completed:   true,
		Status:      status,
		ContentType: contentType,
		Body:        body,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		logger.Error("Failed to store idempotent response", err, map[string]interface{}{
			"status": status,
		})
		return err
	}
	return nil
}

// Release drops a reservation so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
