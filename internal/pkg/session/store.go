// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned by a Store when the id is unknown.
var ErrNoSession = errors.New("session not found")

// Store persists sessions keyed by id. ttl is a retention hint; expiry
// decisions are made by the Manager.
type Store interface {
	Get(ctx context.Context, id string) (*SessionData, error)
	Save(ctx context.Context, id string, data *SessionData, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. It serves single-node
// deployments without Redis and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	payload  []byte
	deadline time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*SessionData, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok && !item.deadline.IsZero() && s.now().After(item.deadline) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}

	var data SessionData
	if err := json.Unmarshal(item.payload, &data); err != nil {
		return nil, err
	}
	data.ID = id
	return &data, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data *SessionData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	item := memoryItem{payload: payload}
	if ttl > 0 {
		item.deadline = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[id] = item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, item := range s.items {
		if !item.deadline.IsZero() && now.After(item.deadline) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
