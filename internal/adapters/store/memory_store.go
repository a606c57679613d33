package store

import (
	"context"
	"errors"
	"sync"

	"github.com/mikey/llm-smish-guard/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a message is not in the store
var ErrNotFound = errors.New("message not found")

// MemoryStore is an in-memory implementation of the MessageStore interface.
// Messages are kept newest first and changes are broadcast to watchers.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []core.Message
	byID     map[string]int
	watchers []chan []core.Message
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory message store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Add inserts a new message at the top of the list. An existing id is
// treated as an upsert.
func (s *MemoryStore) Add(ctx context.Context, msg *core.Message) error {
	s.mu.Lock()
	if idx, ok := s.byID[msg.ID]; ok {
		s.messages[idx] = *msg
	} else {
		s.messages = append([]core.Message{*msg}, s.messages...)
		s.reindex()
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Update upserts a message by id
func (s *MemoryStore) Update(ctx context.Context, msg *core.Message) error {
	s.mu.Lock()
	if idx, ok := s.byID[msg.ID]; ok {
		s.messages[idx] = *msg
	} else {
		s.messages = append([]core.Message{*msg}, s.messages...)
		s.reindex()
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Get retrieves a message by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg := s.messages[idx]
	return &msg, nil
}

// All returns every stored message, newest first
func (s *MemoryStore) All(ctx context.Context) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

// Watch returns a channel receiving the full message list after each change.
// Sends never block the writer; a slow watcher misses intermediate snapshots.
func (s *MemoryStore) Watch() <-chan []core.Message {
	ch := make(chan []core.Message, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *MemoryStore) reindex() {
	for i := range s.messages {
		s.byID[s.messages[i].ID] = i
	}
}

func (s *MemoryStore) snapshot() []core.Message {
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MemoryStore) notify(snapshot []core.Message) {
	s.mu.RLock()
	watchers := s.watchers
	s.mu.RUnlock()

	for _, ch := range watchers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so the writer never blocks
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
