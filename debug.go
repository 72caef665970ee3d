package slotdb

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

type DumpFlags uint64

const (
	DumpMetadata = DumpFlags(1 << iota)
	DumpChunks
	DumpContent
	DumpProblems

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "

	maxListedMissing = 1000
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Layout is a raw view of the slots persisted for one database name,
// read without applying any of the load-time recovery rules.
type Layout struct {
	Name    string
	MetaRaw string
	HasMeta bool
	Meta    ChunkMetadata
	MetaErr error

	// Chunks lists every chunk slot present, by ascending index, including
	// orphans beyond Meta.TotalChunks.
	Chunks []ChunkSlot
	// Missing lists at most maxListedMissing absent indices below
	// Meta.TotalChunks; MissingCount counts all of them.
	Missing      []int
	MissingCount int
	Orphans      []int

	// Encoded is the concatenation of chunks 0..TotalChunks-1 that exist.
	Encoded   string
	DecodeErr error
}

type ChunkSlot struct {
	Index int
	Key   string
	Value string
}

// Inspect reads the metadata slot and all chunk slots of database name.
func Inspect(store Store, name string) (*Layout, error) {
	l := &Layout{Name: name}

	metaKey := MetaKey(name)
	raw, ok, err := store.GetSlot(metaKey)
	if err != nil {
		return nil, storeErr("get", metaKey, err)
	}
	l.MetaRaw, l.HasMeta = raw, ok
	if ok {
		l.Meta, l.MetaErr = DecodeMetadata(raw)
	}

	prefix := ChunkPrefix(name)
	keys, err := store.ListKeys(prefix)
	if err != nil {
		return nil, storeErr("list", prefix, err)
	}
	for _, key := range keys {
		i, ok := parseChunkIndex(prefix, key)
		if !ok {
			continue
		}
		v, ok, err := store.GetSlot(key)
		if err != nil {
			return nil, storeErr("get", key, err)
		}
		if ok {
			l.Chunks = append(l.Chunks, ChunkSlot{Index: i, Key: key, Value: v})
		}
	}
	slices.SortFunc(l.Chunks, func(a, b ChunkSlot) int { return a.Index - b.Index })

	total := 0
	if l.HasMeta && l.MetaErr == nil {
		total = l.Meta.TotalChunks
	}
	var parts []string
	next := 0
	for _, c := range l.Chunks {
		if c.Index >= total {
			l.Orphans = append(l.Orphans, c.Index)
			continue
		}
		l.addMissing(next, c.Index)
		next = c.Index + 1
		parts = append(parts, c.Value)
	}
	l.addMissing(next, total)
	l.Encoded = JoinChunks(parts)
	if l.HasMeta && l.MetaErr == nil {
		_, l.DecodeErr = Decode(l.Encoded)
	}
	return l, nil
}

func (l *Layout) addMissing(from, to int) {
	if to <= from {
		return
	}
	l.MissingCount += to - from
	for i := from; i < to && len(l.Missing) < maxListedMissing; i++ {
		l.Missing = append(l.Missing, i)
	}
}

// Healthy reports whether loading this layout would yield the persisted
// document with no recovery and no orphaned chunk slots.
func (l *Layout) Healthy() bool {
	return l.HasMeta && l.MetaErr == nil && l.DecodeErr == nil && l.MissingCount == 0 && len(l.Orphans) == 0
}

func (l *Layout) Dump(f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpMetadata) {
		fmt.Fprintln(&buf, dumpSep)
		switch {
		case !l.HasMeta:
			fmt.Fprintf(&buf, "%s: <absent>\n", MetaKey(l.Name))
		case l.MetaErr != nil:
			fmt.Fprintf(&buf, "%s: %q (corrupt: %v)\n", MetaKey(l.Name), l.MetaRaw, l.MetaErr)
		default:
			fmt.Fprintf(&buf, "%s: chunk_size = %d, total_chunks = %d, encoded_size = %d, digest = %016x\n", MetaKey(l.Name), l.Meta.ChunkSize, l.Meta.TotalChunks, len(l.Encoded), digest(l.Encoded))
		}
	}
	if f.Contains(DumpChunks) {
		for _, c := range l.Chunks {
			fmt.Fprintf(&buf, "%s%s (%d)", indentStep, c.Key, utf8.RuneCountInString(c.Value))
			if f.Contains(DumpContent) {
				fmt.Fprintf(&buf, " %q", c.Value)
			}
			buf.WriteByte('\n')
		}
	}
	if f.Contains(DumpProblems) {
		for _, i := range l.Missing {
			fmt.Fprintf(&buf, "%smissing %s\n", indentStep, ChunkKey(l.Name, i))
		}
		if more := l.MissingCount - len(l.Missing); more > 0 {
			fmt.Fprintf(&buf, "%s... and %d more missing\n", indentStep, more)
		}
		for _, i := range l.Orphans {
			fmt.Fprintf(&buf, "%sorphan %s\n", indentStep, ChunkKey(l.Name, i))
		}
		if l.DecodeErr != nil {
			fmt.Fprintf(&buf, "%sundecodable: %v\n", indentStep, l.DecodeErr)
		}
	}
	return buf.String()
}

// Dump describes the slots currently persisted for db.
func (db *DB) Dump(f DumpFlags) (string, error) {
	l, err := Inspect(db.store, db.name)
	if err != nil {
		return "", err
	}
	return l.Dump(f), nil
}
