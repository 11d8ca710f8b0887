/**
 * Redis history store
 *
 * Recent results live in one Redis list of JSON entries, newest first. Every
 * write trims the list to the limit and refreshes its expiry, so Redis never
 * holds more than the configured window.
 */

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/logging"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// RedisStore is a Store backed by a Redis list
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
	ttl    time.Duration
	logger *logging.Logger
}

// RedisStoreConfig holds store configuration
type RedisStoreConfig struct {
	RedisURL string
	Key      string
	Limit    int
	TTL      time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg *RedisStoreConfig) (*RedisStore, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg *RedisStoreConfig) *RedisStore {
	s := &RedisStore{
		client: client,
		key:    cfg.Key,
		limit:  cfg.Limit,
		ttl:    cfg.TTL,
		logger: logging.NewLogger("RedisHistory"),
	}
	if s.key == "" {
		s.key = "ocrsum:history"
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s
}

func (s *RedisStore) Add(ctx context.Context, result *ocr.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.NewStorageFailedError("add", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
		pipe.Expire(ctx, s.key, s.ttl)
		return nil
	})
	if err != nil {
		return errors.NewStorageFailedError("add", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*ocr.Result, error) {
	entries, err := s.client.LRange(ctx, s.key, 0, int64(s.limit-1)).Result()
	if err != nil {
		return nil, errors.NewStorageFailedError("list", err)
	}
	return s.decode(entries), nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*ocr.Result, error) {
	results, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.NewNotFoundError("result", id)
}

// UpdateText rewrites the entry in place under WATCH, so a concurrent Add
// that shifts indexes makes the transaction fail instead of clobbering.
func (s *RedisStore) UpdateText(ctx context.Context, id, text string) (*ocr.Result, error) {
	var updated *ocr.Result

	txf := func(tx *redis.Tx) error {
		entries, err := tx.LRange(ctx, s.key, 0, int64(s.limit-1)).Result()
		if err != nil {
			return err
		}

		index := -1
		for i, e := range entries {
			var r ocr.Result
			if err := json.Unmarshal([]byte(e), &r); err != nil || r.ID != id {
				continue
			}
			r.ReplaceText(text)
			updated, index = &r, i
			break
		}
		if index < 0 {
			return errors.NewNotFoundError("result", id)
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, s.key, int64(index), data)
			pipe.Expire(ctx, s.key, s.ttl)
			return nil
		})
		return err
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		switch {
		case err == nil:
			return updated, nil
		case err == redis.TxFailedErr:
			continue
		case errors.IsCode(err, errors.ErrorNotFound):
			return nil, err
		default:
			return nil, errors.NewStorageFailedError("update", err)
		}
	}
	return nil, errors.NewStorageFailedError("update", fmt.Errorf("concurrent modification of %s", s.key))
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// decode skips entries that no longer parse rather than failing the listing.
func (s *RedisStore) decode(entries []string) []*ocr.Result {
	results := make([]*ocr.Result, 0, len(entries))
	for _, e := range entries {
		var r ocr.Result
		if err := json.Unmarshal([]byte(e), &r); err != nil {
			s.logger.Warn("Skipping unreadable history entry", "key", s.key, "error", err)
			continue
		}
		results = append(results, &r)
	}
	return results
}
