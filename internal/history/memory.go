package history

import (
	"context"
	"sync"

	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	results []*ocr.Result // newest first
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Add(_ context.Context, result *ocr.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append([]*ocr.Result{clone(result)}, s.results...)
	if len(s.results) > s.limit {
		s.results = s.results[:s.limit]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*ocr.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ocr.Result, len(s.results))
	for i, r := range s.results {
		out[i] = clone(r)
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*ocr.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.results {
		if r.ID == id {
			return clone(r), nil
		}
	}
	return nil, errors.NewNotFoundError("result", id)
}

func (s *MemoryStore) UpdateText(_ context.Context, id, text string) (*ocr.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.results {
		if r.ID == id {
			r.ReplaceText(text)
			return clone(r), nil
		}
	}
	return nil, errors.NewNotFoundError("result", id)
}

func (s *MemoryStore) Close() error {
	return nil
}
