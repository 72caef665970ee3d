package slotdb

import (
	"strings"
	"testing"
)

func TestInspectAndDump(t *testing.T) {
	db, store := openMem(t, "dump", 5)
	ensure(t, db.Set("a", "1234"))
	ensure(t, store.SetSlot("db_dump_7", "stale"))
	ensure(t, store.DeleteSlot("db_dump_1"))

	l, err := Inspect(store, "dump")
	ensure(t, err)
	deepEqual(t, l.Missing, []int{1})
	deepEqual(t, l.Orphans, []int{7})
	if l.Healthy() {
		t.Fatalf("damaged layout reported healthy")
	}
	if l.DecodeErr == nil {
		t.Fatalf("DecodeErr = nil for a truncated document")
	}

	out, err := db.Dump(DumpAll)
	ensure(t, err)
	for _, want := range []string{
		"db_dump: chunk_size = 5, total_chunks = 3",
		`db_dump_0 (5) "{\"a\":"`,
		"missing db_dump_1",
		"orphan db_dump_7",
		"undecodable:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump output lacks %q:\n%s", want, out)
		}
	}

	out, err = db.Dump(DumpMetadata)
	ensure(t, err)
	if strings.Contains(out, "db_dump_0") {
		t.Errorf("DumpMetadata printed chunks:\n%s", out)
	}
}

func TestInspectAbsent(t *testing.T) {
	l, err := Inspect(NewMemStore(), "none")
	ensure(t, err)
	if l.HasMeta || l.Healthy() {
		t.Fatalf("absent layout: %+v", l)
	}
	if out := l.Dump(DumpAll); !strings.Contains(out, "db_none: <absent>") {
		t.Fatalf("Dump = %q", out)
	}
}

func TestStatsDigest(t *testing.T) {
	db, store := openMem(t, "st", 4)
	ensure(t, db.Set("a", 1))
	st := db.Stats()
	if st.Saves != 1 || st.TotalChunks != 2 || st.EncodedSize != len(`{"a":1}`) || st.Digest == 0 {
		t.Fatalf("Stats = %+v", st)
	}
	if st.SlotWrites != 3 {
		t.Fatalf("SlotWrites = %d, wanted 3", st.SlotWrites)
	}

	db2, err := Open(store, Options{Name: "st", ChunkSize: 4})
	ensure(t, err)
	if got := db2.Stats().Digest; got != st.Digest {
		t.Fatalf("digest after load = %x, wanted %x", got, st.Digest)
	}

	ensure(t, db.Clear())
	if st := db.Stats(); st.Digest != 0 || st.TotalChunks != 0 || st.SlotDeletes != 2 {
		t.Fatalf("Stats after clear = %+v", st)
	}
}

func TestInspectHugeGap(t *testing.T) {
	store := NewMemStore()
	ensure(t, store.SetSlot("db_huge", `{"chunkSize":5,"totalChunks":2000000000}`))
	ensure(t, store.SetSlot("db_huge_0", "{"))
	ensure(t, store.SetSlot("db_huge_1999999999", "}"))

	l, err := Inspect(store, "huge")
	ensure(t, err)
	if len(l.Missing) != maxListedMissing {
		t.Fatalf("len(Missing) = %d, wanted %d", len(l.Missing), maxListedMissing)
	}
	if l.Missing[0] != 1 || l.Missing[maxListedMissing-1] != maxListedMissing {
		t.Fatalf("Missing = %v...%v, wanted 1...%d", l.Missing[0], l.Missing[maxListedMissing-1], maxListedMissing)
	}
	if l.MissingCount != 1999999998 {
		t.Fatalf("MissingCount = %d, wanted 1999999998", l.MissingCount)
	}
	isempty(t, l.Orphans)
	if out := l.Dump(DumpProblems); !strings.Contains(out, "... and 1999998998 more missing") {
		t.Fatalf("Dump lacks the missing summary:\n%s", out[len(out)-200:])
	}
}
