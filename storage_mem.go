package slotdb

import (
	"sort"
	"strings"
	"sync"
)

// MemStore is a transient in-memory Store. It is safe for concurrent use and
// is the usual test double for the persistent backends.
type MemStore struct {
	mu     sync.Mutex
	items  []memSlot // sorted by key
	closed bool
}

type memSlot struct {
	key   string
	value string
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) GetSlot(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	i, ok := s.find(key)
	if !ok {
		return "", false, nil
	}
	return s.items[i].value, true, nil
}

func (s *MemStore) SetSlot(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i, ok := s.find(key)
	if ok {
		s.items[i].value = value
		return nil
	}
	s.items = append(s.items, memSlot{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = memSlot{key: key, value: value}
	return nil
}

func (s *MemStore) DeleteSlot(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i, ok := s.find(key)
	if !ok {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *MemStore) ListKeys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	i, _ := s.find(prefix)
	for ; i < len(s.items) && strings.HasPrefix(s.items[i].key, prefix); i++ {
		keys = append(keys, s.items[i].key)
	}
	return keys, nil
}

// Len returns the number of slots.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}

func (s *MemStore) find(key string) (idx int, ok bool) {
	items := s.items
	i := sort.Search(len(items), func(i int) bool {
		return items[i].key >= key
	})
	return i, i < len(items) && items[i].key == key
}
