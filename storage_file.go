package slotdb

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/vmihailenco/msgpack/v5"
)

const fileSnapshotVersion = 1

// FileStore keeps every slot in one file holding a msgpack snapshot. Each
// mutating call rewrites the snapshot and atomically renames it into place,
// so a crash leaves either the old or the new snapshot, never a torn one.
//
// Writes cost O(total slot size); FileStore suits small databases and tools.
type FileStore struct {
	path string

	mu     sync.Mutex
	slots  map[string]string
	closed bool
}

type fileSnapshot struct {
	Version int               `msgpack:"v"`
	Slots   map[string]string `msgpack:"s"`
}

// OpenFileStore loads the snapshot at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, slots: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("slotdb: %w", err)
	}

	var snap fileSnapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("slotdb: %s: invalid snapshot: %w", path, err)
	}
	if snap.Version != fileSnapshotVersion {
		return nil, fmt.Errorf("slotdb: %s: unsupported snapshot version %d", path, snap.Version)
	}
	if snap.Slots != nil {
		s.slots = snap.Slots
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) GetSlot(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *FileStore) SetSlot(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old, existed := s.slots[key]
	s.slots[key] = value
	if err := s.flushLocked(); err != nil {
		if existed {
			s.slots[key] = old
		} else {
			delete(s.slots, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) DeleteSlot(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old, existed := s.slots[key]
	if !existed {
		return nil
	}
	delete(s.slots, key)
	if err := s.flushLocked(); err != nil {
		s.slots[key] = old
		return err
	}
	return nil
}

func (s *FileStore) ListKeys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k := range s.slots {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.slots = nil
	return nil
}

func (s *FileStore) flushLocked() error {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(&fileSnapshot{Version: fileSnapshotVersion, Slots: s.slots})
	msgpack.PutEncoder(enc)
	if err != nil {
		return fmt.Errorf("slotdb: encoding snapshot: %w", err)
	}
	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("slotdb: writing %s: %w", s.path, err)
	}
	return nil
}
