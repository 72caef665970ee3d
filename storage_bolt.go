package slotdb

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

const defaultBoltBucket = "slots"

// BoltStore keeps slots as keys of a single Bolt bucket. Each call runs in
// its own Bolt transaction, which gives the per-call atomicity and
// durability Store requires.
type BoltStore struct {
	bdb    *bbolt.DB
	bucket []byte
	owned  bool
	closed atomic.Bool
}

type BoltOptions struct {
	// Bucket defaults to "slots".
	Bucket    string
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
}

// OpenBoltStore opens (creating if needed) a Bolt file at path.
func OpenBoltStore(path string, opt BoltOptions) (*BoltStore, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("slotdb: %w", err)
	}
	s, err := NewBoltStore(bdb, opt.Bucket)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewBoltStore uses an already open Bolt database. Close will not close it.
func NewBoltStore(bdb *bbolt.DB, bucket string) (*BoltStore, error) {
	if bucket == "" {
		bucket = defaultBoltBucket
	}
	s := &BoltStore{bdb: bdb, bucket: []byte(bucket)}
	if !bdb.IsReadOnly() {
		err := bdb.Update(func(btx *bbolt.Tx) error {
			_, err := btx.CreateBucketIfNotExists(s.bucket)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("slotdb: creating bucket %q: %w", bucket, err)
		}
	}
	return s, nil
}

func (s *BoltStore) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *BoltStore) GetSlot(key string) (value string, ok bool, err error) {
	err = s.view(func(btx *bbolt.Tx) error {
		b := btx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		v := b.Get(unsafeBytesFromString(key))
		if v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

func (s *BoltStore) SetSlot(key, value string) error {
	return s.update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) DeleteSlot(key string) error {
	return s.update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) ListKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.view(func(btx *bbolt.Tx) error {
		b := btx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		p := unsafeBytesFromString(prefix)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Close makes further calls fail with ErrClosed. The Bolt database is
// closed only if OpenBoltStore opened it.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) || !s.owned {
		return nil
	}
	return s.bdb.Close()
}

func (s *BoltStore) view(f func(btx *bbolt.Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return boltErr(s.bdb.View(f))
}

func (s *BoltStore) update(f func(btx *bbolt.Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return boltErr(s.bdb.Update(f))
}

func boltErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
