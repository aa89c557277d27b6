// Package redis stores match results in Redis. Each record lives under its own
// key; two sets index all issue ids and the unclassified ones.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/store"
)

const (
	defaultPrefix = "triage:"
	maxTxAttempts = 5
)

func init() {
	store.Register("redis", func(dsn string) (store.Store, error) {
		return Open(dsn)
	})
}

type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to redisURL, e.g. "redis://localhost:6379/0".
func Open(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis store: parse url: %w: %w", model.ErrConfiguration, err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: connect: %w: %w", model.ErrConfiguration, err)
	}
	return NewWithClient(client, defaultPrefix), nil
}

// NewWithClient wraps an existing client. Keys are namespaced under prefix.
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(issueID string) string { return s.prefix + "result:" + issueID }
func (s *Store) allKey() string            { return s.prefix + "results" }
func (s *Store) unmatchedKey() string      { return s.prefix + "unmatched" }

func (s *Store) Upsert(ctx context.Context, rec model.Record) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}
	id := rec.Result.IssueID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.write(ctx, pipe, id, data, rec.Result.Classified())
		return nil
	})
	if err != nil {
		return store.Failed("upsert "+id, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, pipe redis.Pipeliner, id string, data []byte, classified bool) {
	pipe.Set(ctx, s.key(id), data, 0)
	pipe.SAdd(ctx, s.allKey(), id)
	if classified {
		pipe.SRem(ctx, s.unmatchedKey(), id)
	} else {
		pipe.SAdd(ctx, s.unmatchedKey(), id)
	}
}

func (s *Store) Get(ctx context.Context, issueID string) (model.Record, error) {
	data, err := s.client.Get(ctx, s.key(issueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Record{}, store.NotFound(issueID)
	}
	if err != nil {
		return model.Record{}, store.Failed("get "+issueID, err)
	}
	return store.Decode(data)
}

func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	return s.members(ctx, s.allKey())
}

func (s *Store) ListUnmatched(ctx context.Context) ([]model.Record, error) {
	return s.members(ctx, s.unmatchedKey())
}

func (s *Store) members(ctx context.Context, set string) ([]model.Record, error) {
	ids, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, store.Failed("list", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, store.Failed("list", err)
	}

	out := make([]model.Record, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a record
		}
		rec, err := store.Decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	store.SortByIssueID(out)
	return out, nil
}

func (s *Store) AssignMatch(ctx context.Context, issueID string, c model.MatchCandidate) error {
	key := s.key(issueID)
	assign := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return store.NotFound(issueID)
		}
		if err != nil {
			return store.Failed("assign "+issueID, err)
		}
		rec, err := store.Decode(data)
		if err != nil {
			return err
		}
		store.Assign(&rec, c)
		if data, err = store.Encode(rec); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, issueID, data, true)
			return nil
		})
		return err
	}

	for range maxTxAttempts {
		err := s.client.Watch(ctx, assign, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrPersistence) {
			return store.Failed("assign "+issueID, err)
		}
		return err
	}
	return store.Failed("assign "+issueID, redis.TxFailedErr)
}

// Raw returns the stored bytes for issueID.
func (s *Store) Raw(ctx context.Context, issueID string) ([]byte, error) {
	return s.client.Get(ctx, s.key(issueID)).Bytes()
}

func (s *Store) Close() error {
	return s.client.Close()
}
