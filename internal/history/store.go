// Package history keeps a bounded, newest-first list of recent OCR results.
package history

import (
	"context"
	"fmt"

	"github.com/adverant/nexus/ocrsum/internal/config"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// DefaultLimit matches how many recent results the UI shows.
const DefaultLimit = 10

// Store holds recent results. Results returned by a Store are copies; mutate
// them through UpdateText.
type Store interface {
	Add(ctx context.Context, result *ocr.Result) error
	List(ctx context.Context) ([]*ocr.Result, error)
	Get(ctx context.Context, id string) (*ocr.Result, error)
	// UpdateText replaces the text of a stored result and refreshes its timestamp.
	UpdateText(ctx context.Context, id, text string) (*ocr.Result, error)
	Close() error
}

// New builds the store selected by cfg.HistoryBackend
func New(cfg *config.Config) (Store, error) {
	switch cfg.HistoryBackend {
	case "", "memory":
		return NewMemoryStore(cfg.HistoryLimit), nil
	case "redis":
		return NewRedisStore(&RedisStoreConfig{
			RedisURL: cfg.RedisURL,
			Limit:    cfg.HistoryLimit,
			TTL:      cfg.HistoryTTL,
		})
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}

func clone(r *ocr.Result) *ocr.Result {
	c := *r
	return &c
}
