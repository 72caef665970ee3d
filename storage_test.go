package slotdb

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func setupBolt(t testing.TB) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slots.db")
	t.Logf("DB: %s", path)
	s, err := OpenBoltStore(path, BoltOptions{IsTesting: true})
	ensure(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupFile(t testing.TB) *FileStore {
	t.Helper()
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "slots.msgpack"))
	ensure(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemStore(t *testing.T) {
	testStoreContract(t, NewMemStore())
}

func TestBoltStore(t *testing.T) {
	testStoreContract(t, setupBolt(t))
}

func TestFileStore(t *testing.T) {
	testStoreContract(t, setupFile(t))
}

func TestFailingStoreDisarmed(t *testing.T) {
	testStoreContract(t, NewFailingStore(NewMemStore(), 0))
}

func testStoreContract(t *testing.T, s Store) {
	t.Helper()

	if _, ok := slot(t, s, "missing"); ok {
		t.Fatalf("GetSlot(missing) reported present")
	}
	ensure(t, s.DeleteSlot("missing"))

	ensure(t, s.SetSlot("db_a", "meta"))
	ensure(t, s.SetSlot("db_a_0", "zero"))
	ensure(t, s.SetSlot("db_a_1", "one"))
	ensure(t, s.SetSlot("db_ab_0", "other"))
	ensure(t, s.SetSlot("db_a_0", "zero2"))

	if v, ok := slot(t, s, "db_a_0"); !ok || v != "zero2" {
		t.Fatalf("GetSlot(db_a_0) = (%q, %v), wanted zero2", v, ok)
	}
	if v, ok := slot(t, s, "db_a_1"); !ok || v != "one" {
		t.Fatalf("GetSlot(db_a_1) = (%q, %v), wanted one", v, ok)
	}

	keys := slotKeys(t, s, "db_a_")
	slices.Sort(keys)
	deepEqual(t, keys, []string{"db_a_0", "db_a_1"})

	keys = slotKeys(t, s, "db_a")
	slices.Sort(keys)
	deepEqual(t, keys, []string{"db_a", "db_a_0", "db_a_1", "db_ab_0"})

	isempty(t, slotKeys(t, s, "zzz"))
	if n := len(slotKeys(t, s, "")); n != 4 {
		t.Fatalf("ListKeys(\"\") returned %d keys, wanted 4", n)
	}

	ensure(t, s.DeleteSlot("db_a_0"))
	if _, ok := slot(t, s, "db_a_0"); ok {
		t.Fatalf("db_a_0 still present after DeleteSlot")
	}
	deepEqual(t, slotKeys(t, s, "db_a_"), []string{"db_a_1"})
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")
	s, err := OpenBoltStore(path, BoltOptions{IsTesting: true, Bucket: "kv"})
	ensure(t, err)
	ensure(t, s.SetSlot("k", "v"))
	ensure(t, s.Close())

	s, err = OpenBoltStore(path, BoltOptions{IsTesting: true, Bucket: "kv"})
	ensure(t, err)
	defer s.Close()
	if v, ok := slot(t, s, "k"); !ok || v != "v" {
		t.Fatalf("after reopen GetSlot(k) = (%q, %v)", v, ok)
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.msgpack")
	s, err := OpenFileStore(path)
	ensure(t, err)
	ensure(t, s.SetSlot("k", "v"))
	ensure(t, s.SetSlot("gone", "x"))
	ensure(t, s.DeleteSlot("gone"))

	s2, err := OpenFileStore(path)
	ensure(t, err)
	if v, ok := slot(t, s2, "k"); !ok || v != "v" {
		t.Fatalf("after reopen GetSlot(k) = (%q, %v)", v, ok)
	}
	if _, ok := slot(t, s2, "gone"); ok {
		t.Fatalf("deleted slot survived reopen")
	}
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.msgpack")
	ensure(t, os.WriteFile(path, []byte{0xc1, 0x00}, 0o644))
	if _, err := OpenFileStore(path); err == nil {
		t.Fatalf("OpenFileStore accepted a corrupt snapshot")
	}
}

func TestClosedStores(t *testing.T) {
	m := NewMemStore()
	ensure(t, m.Close())
	if err := m.SetSlot("a", "b"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetSlot on closed MemStore = %v, wanted ErrClosed", err)
	}

	f := setupFile(t)
	ensure(t, f.Close())
	if _, _, err := f.GetSlot("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetSlot on closed FileStore = %v, wanted ErrClosed", err)
	}

	b := setupBolt(t)
	ensure(t, b.SetSlot("a", "b"))
	ensure(t, b.Close())
	if _, _, err := b.GetSlot("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetSlot on closed BoltStore = %v, wanted ErrClosed", err)
	}
	if err := b.SetSlot("a", "c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetSlot on closed BoltStore = %v, wanted ErrClosed", err)
	}
	if _, err := b.ListKeys(""); !errors.Is(err, ErrClosed) {
		t.Fatalf("ListKeys on closed BoltStore = %v, wanted ErrClosed", err)
	}
}

func TestFailingStore(t *testing.T) {
	mem := NewMemStore()
	s := NewFailingStore(mem, 2)
	ensure(t, s.SetSlot("a", "1"))
	ensure(t, s.DeleteSlot("a"))
	if err := s.SetSlot("b", "2"); !errors.Is(err, ErrInjected) {
		t.Fatalf("third write = %v, wanted ErrInjected", err)
	}
	if !s.Triggered() {
		t.Fatalf("Triggered() = false after injected failure")
	}
	if _, ok := slot(t, mem, "b"); ok {
		t.Fatalf("rejected write reached the underlying store")
	}
	if _, ok := slot(t, s, "missing"); ok {
		t.Fatalf("reads must pass through")
	}

	s.Disarm()
	ensure(t, s.SetSlot("b", "2"))
	if s.Triggered() {
		t.Fatalf("Triggered() = true after Disarm")
	}
}
