package slotdb

import (
	"errors"
	"sync"
)

// ErrInjected is returned by FailingStore once its failpoint has triggered.
var ErrInjected = errors.New("injected store failure")

// FailingStore wraps a Store and simulates a crash: after a given number of
// successful mutating calls (SetSlot, DeleteSlot), every further mutating
// call fails with ErrInjected without reaching the underlying store. Reads
// keep working, so the state left behind can be inspected and reloaded.
//
// The zero After disables injection.
type FailingStore struct {
	Store

	mu     sync.Mutex
	after  int
	writes int
	failed bool
}

func NewFailingStore(s Store, after int) *FailingStore {
	return &FailingStore{Store: s, after: after}
}

// FailAfter re-arms the failpoint to trigger after n more mutating calls.
func (s *FailingStore) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after, s.writes, s.failed = n, 0, false
}

// Disarm turns injection off.
func (s *FailingStore) Disarm() {
	s.FailAfter(0)
}

// Triggered reports whether a mutating call has been rejected since the
// last FailAfter.
func (s *FailingStore) Triggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *FailingStore) SetSlot(key, value string) error {
	if err := s.admit(); err != nil {
		return err
	}
	return s.Store.SetSlot(key, value)
}

func (s *FailingStore) DeleteSlot(key string) error {
	if err := s.admit(); err != nil {
		return err
	}
	return s.Store.DeleteSlot(key)
}

func (s *FailingStore) admit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.after <= 0 {
		return nil
	}
	if s.failed || s.writes >= s.after {
		s.failed = true
		return ErrInjected
	}
	s.writes++
	return nil
}
