// Package redis provides a Redis-backed battle session store using go-redis v9.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/monbattle/internal/config"
	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

// SessionStore keeps battle snapshots as JSON strings and binds threads to
// active battles with a separate key.
//
// Keys: <prefix>battle:<id> and <prefix>thread:<thread id>.
type SessionStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewClient opens a client for cfg and verifies the server answers.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewSessionStore creates a SessionStore. A zero ttl keeps snapshots forever.
func NewSessionStore(client *goredis.Client, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) battleKey(id string) string {
	return fmt.Sprintf("%sbattle:%s", s.prefix, id)
}

func (s *SessionStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

// Create stores a new session and claims its thread.
//
// Postcondition: Returns nil on success or an error wrapping
// battle.ErrValidation when the thread already has an active battle.
func (s *SessionStore) Create(ctx context.Context, sess *battle.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal battle %s: %w", sess.ID, err)
	}

	if sess.ThreadID != "" {
		if err := s.claimThread(ctx, sess); err != nil {
			return err
		}
	}

	if err := s.client.Set(ctx, s.battleKey(sess.ID), string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set battle in Redis: %w", err)
	}
	return nil
}

// claimThread binds sess.ThreadID to sess.ID. A binding left by a finished or
// expired battle is replaced under WATCH so two creators cannot both take it.
func (s *SessionStore) claimThread(ctx context.Context, sess *battle.Session) error {
	key := s.threadKey(sess.ThreadID)
	claimed, err := s.client.SetNX(ctx, key, sess.ID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim thread %s: %w", sess.ThreadID, err)
	}
	if claimed {
		return nil
	}

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		bound, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return fmt.Errorf("failed to get thread from Redis: %w", err)
		default:
			if _, err := s.active(ctx, bound); err == nil {
				return battle.Validationf("thread %q already has an active battle", sess.ThreadID)
			} else if !errors.Is(err, battle.ErrNotFound) {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, sess.ID, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		return battle.Validationf("thread %q was claimed by another battle", sess.ThreadID)
	}
	if err != nil && !errors.Is(err, battle.ErrValidation) {
		return fmt.Errorf("failed to claim thread %s: %w", sess.ThreadID, err)
	}
	return err
}

// Get loads a session by id.
//
// Postcondition: Returns the Session or an error wrapping battle.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (*battle.Session, error) {
	data, err := s.client.Get(ctx, s.battleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, battle.NotFoundf("battle %s", id)
		}
		return nil, fmt.Errorf("failed to get battle from Redis: %w", err)
	}
	var sess battle.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal battle %s: %w", id, err)
	}
	return &sess, nil
}

// Update overwrites the snapshot. An active session renews its thread binding
// alongside the snapshot; a terminal session releases it.
func (s *SessionStore) Update(ctx context.Context, sess *battle.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal battle %s: %w", sess.ID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.battleKey(sess.ID), string(data), s.ttl)
	switch {
	case sess.ThreadID == "":
	case sess.Status.Terminal():
		pipe.Del(ctx, s.threadKey(sess.ThreadID))
	case s.ttl > 0:
		pipe.Expire(ctx, s.threadKey(sess.ThreadID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update battle in Redis: %w", err)
	}
	return nil
}

// ForThread returns the active battle bound to threadID.
//
// Postcondition: Returns the Session or an error wrapping battle.ErrNotFound.
func (s *SessionStore) ForThread(ctx context.Context, threadID string) (*battle.Session, error) {
	id, err := s.client.Get(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, battle.NotFoundf("no battle in thread %q", threadID)
		}
		return nil, fmt.Errorf("failed to get thread from Redis: %w", err)
	}
	return s.active(ctx, id)
}

// active loads battle id and reports ErrNotFound when it has ended.
func (s *SessionStore) active(ctx context.Context, id string) (*battle.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, battle.NotFoundf("battle %s has ended", id)
	}
	return sess, nil
}
