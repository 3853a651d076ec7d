package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aliaspay/internal/session/models"
	"aliaspay/pkg/platform/sentinel"
)

const redisKeyPrefix = "aliaspay:session:"

// RedisStore keeps sessions as JSON values. Consumption runs under WATCH with
// a transactional pipeline, so two concurrent consumers cannot both observe
// the active record and win.
//
// The Redis backend is atomic on its own key only: it cannot join the SQL
// transaction that wraps a transfer. When the transfer fails after the
// consume, the gateway re-arms the session through Reactivate instead of a
// rollback; a crash between the two leaves the session consumed. Deployments
// that need strict transfer atomicity should keep sessions in Postgres.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisSessionKey(handle, sessionID string) string {
	return redisKeyPrefix + sessionKey(handle, sessionID)
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisSessionKey(session.Handle, session.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, handle, sessionID string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, redisSessionKey(handle, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// ConsumeIfActive flips the session to consumed under an optimistic lock.
// A WATCH conflict means another consumer wrote the key first; since the only
// write to an active session is its consumption, that conflict is reported as
// ErrAlreadyUsed.
func (s *RedisStore) ConsumeIfActive(ctx context.Context, handle, sessionID string, now time.Time) error {
	key := redisSessionKey(handle, sessionID)

	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		raw, err := rtx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}

		var session models.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if !session.Active {
			return sentinel.ErrAlreadyUsed
		}

		session.Active = false
		session.ConsumedAt = &now
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrAlreadyUsed
	}
	return err
}

// Reactivate re-arms a consumed session after its transfer failed.
func (s *RedisStore) Reactivate(ctx context.Context, handle, sessionID string) error {
	key := redisSessionKey(handle, sessionID)

	return s.client.Watch(ctx, func(rtx *redis.Tx) error {
		raw, err := rtx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}

		var session models.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}

		session.Active = true
		session.ConsumedAt = nil
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
}
