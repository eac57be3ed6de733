package service_test

import (
	"context"
	"sync"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/storage"
)

// --- Fakes ---

// countingStore wraps a Memory store and counts calls per operation.
type countingStore struct {
	*storage.Memory

	mu     sync.Mutex
	gets   int
	sets   int
	dels   int
	setErr error
	delErr error
	// failKey limits setErr to one key when non-empty.
	failKey string
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: storage.NewMemory()}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Memory.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	if s.failKey != "" && s.failKey != key {
		err = nil
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.dels++
	err := s.delErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Delete(ctx, key)
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + s.sets + s.dels
}
