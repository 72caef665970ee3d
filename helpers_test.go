package slotdb

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func init() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

var valueComparer = cmp.Comparer(Value.Equal)

func deepEqual[T any](t testing.TB, a, e T) {
	t.Helper()
	if diff := cmp.Diff(e, a, valueComparer); diff != "" {
		t.Errorf("** mismatch (-wanted +got):\n%s", diff)
	}
}

func isempty[T any, S ~[]T](t testing.TB, a S) {
	if len(a) > 0 {
		t.Helper()
		t.Errorf("** got %v, wanted empty slice", a)
	}
}

func ensure(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func val(t testing.TB, x any) Value {
	t.Helper()
	v, err := ValueOf(x)
	ensure(t, err)
	return v
}

func openMem(t testing.TB, name string, chunkSize int) (*DB, *MemStore) {
	t.Helper()
	store := NewMemStore()
	db, err := Open(store, Options{Name: name, ChunkSize: chunkSize})
	ensure(t, err)
	return db, store
}

func slotKeys(t testing.TB, store Store, prefix string) []string {
	t.Helper()
	keys, err := store.ListKeys(prefix)
	ensure(t, err)
	return keys
}

func slot(t testing.TB, store Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := store.GetSlot(key)
	ensure(t, err)
	return v, ok
}
