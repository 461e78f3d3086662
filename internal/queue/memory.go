package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development.
// Not safe for multi-instance deployments; production uses RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	kv    map[string]memEntry
	lists map[string][]string
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:    make(map[string]memEntry),
		lists: make(map[string][]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.kv[key] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok || e.expired() {
		delete(s.kv, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok {
		return false, nil
	}
	if e.expired() {
		delete(s.kv, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) PushTail(ctx context.Context, listKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[listKey] = append(s.lists[listKey], value)
	return nil
}

func (s *MemoryStore) PopHead(ctx context.Context, listKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[listKey]
	if len(l) == 0 {
		return "", ErrNotFound
	}
	v := l[0]
	s.lists[listKey] = l[1:]
	return v, nil
}

func (s *MemoryStore) Length(ctx context.Context, listKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[listKey])), nil
}

func (e memEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
