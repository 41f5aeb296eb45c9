package storage

import (
	"context"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryRepository implements Repository using process memory. It is used
// when no Redis endpoint is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	clock clock.Clock
	store map[string]memoryEntry
}

// NewInMemory creates a new in-memory repository. A nil clock uses real time.
func NewInMemory(c clock.Clock) *InMemoryRepository {
	if c == nil {
		c = clock.New()
	}
	return &InMemoryRepository{
		clock: c,
		store: make(map[string]memoryEntry),
	}
}

// Get retrieves the raw JSON stored under a key
func (r *InMemoryRepository) Get(_ context.Context, input GetInput) (*GetOutput, error) {
	if input.Key == "" {
		return nil, errors.InvalidArgument(errKeyEmpty)
	}

	r.mu.RLock()
	entry, ok := r.store[input.Key]
	r.mu.RUnlock()

	if !ok || r.expired(entry) {
		return nil, errors.NotFoundf("key %s not found", input.Key)
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return &GetOutput{Key: input.Key, Value: value}, nil
}

// Set stores a JSON-encodable value
func (r *InMemoryRepository) Set(_ context.Context, input SetInput) (*SetOutput, error) {
	data, err := encode(input.Key, input.Value)
	if err != nil {
		return nil, err
	}

	entry := memoryEntry{value: data}
	if input.TTL > 0 {
		entry.expiresAt = r.clock.Now().Add(input.TTL)
	}

	r.mu.Lock()
	r.store[input.Key] = entry
	r.mu.Unlock()

	return &SetOutput{Key: input.Key}, nil
}

// Delete removes a key
func (r *InMemoryRepository) Delete(_ context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.Key == "" {
		return nil, errors.InvalidArgument(errKeyEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.store[input.Key]
	if !ok || r.expired(entry) {
		delete(r.store, input.Key)
		return nil, errors.NotFoundf("key %s not found", input.Key)
	}
	delete(r.store, input.Key)

	return &DeleteOutput{}, nil
}

func (r *InMemoryRepository) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !r.clock.Now().Before(e.expiresAt)
}
