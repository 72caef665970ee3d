package slotdb

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const DefaultChunkSize = 1000

// LoadState is the outcome of the most recent load.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoading
	// StateReady means the persisted document was decoded successfully.
	StateReady
	// StateResetEmpty means nothing usable was persisted and the database
	// started from an empty document.
	StateResetEmpty
)

func (s LoadState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateResetEmpty:
		return "reset-empty"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// DB is one named document persisted in a Store as a metadata slot plus
// numbered chunk slots:
//
//	db_<name>     {"chunkSize":N,"totalChunks":K}
//	db_<name>_0   first N characters of the encoded document
//	...
//	db_<name>_K-1 the rest
//
// The whole document is held in memory. Every mutation re-encodes and
// rewrites all of it, so a write costs O(document size).
//
// A DB must be the only writer of its name in the store. Its methods are
// safe for concurrent use within a process.
type DB struct {
	store     Store
	name      string
	chunkSize int
	logger    *slog.Logger
	verbose   bool
	onRecover func(Recovery)

	mu    sync.Mutex
	doc   Document
	state LoadState

	stats counters
}

type Options struct {
	// Name selects the slot namespace. Required.
	Name string

	// ChunkSize is the maximum number of characters per chunk slot. Zero
	// means DefaultChunkSize; negative values are rejected.
	ChunkSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Verbose logs every slot read and write at debug level.
	Verbose bool

	// OnRecover, if set, is called for every problem that load recovers from
	// by starting with an empty document. Open never returns such problems
	// as errors; this is the only way to observe them.
	OnRecover func(Recovery)
}

// Open loads the document called opt.Name from store.
//
// A missing or unreadable document (absent or corrupt metadata, missing
// chunks, undecodable content) is not an error: the database silently
// starts empty, and the next mutation overwrites the old slots. Errors
// returned by the store itself are returned.
func Open(store Store, opt Options) (*DB, error) {
	if err := validateName(opt.Name); err != nil {
		return nil, err
	}
	if opt.ChunkSize == 0 {
		opt.ChunkSize = DefaultChunkSize
	} else if opt.ChunkSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, opt.ChunkSize)
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	db := &DB{
		store:     store,
		name:      opt.Name,
		chunkSize: opt.ChunkSize,
		logger:    opt.Logger.With("db", opt.Name),
		verbose:   opt.Verbose,
		onRecover: opt.OnRecover,
		doc:       Document{},
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) Name() string {
	return db.name
}

func (db *DB) ChunkSize() int {
	return db.chunkSize
}

func (db *DB) Store() Store {
	return db.store
}

func (db *DB) LoadState() LoadState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state
}

// Reload discards the in-memory document and runs the load protocol again.
func (db *DB) Reload() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.load()
}

func (db *DB) load() error {
	db.state = StateLoading
	db.stats.loads.Add(1)

	doc, meta, encoded, err := db.read()
	if err != nil {
		db.doc, db.state = Document{}, StateResetEmpty
		return err
	}
	if doc == nil {
		db.doc, db.state = Document{}, StateResetEmpty
		db.stats.observe(0, "")
		return nil
	}
	db.doc, db.state = doc, StateReady
	db.stats.observe(meta.TotalChunks, encoded)
	return nil
}

// read returns a nil document when load has to fall back to empty.
func (db *DB) read() (Document, ChunkMetadata, string, error) {
	metaKey := MetaKey(db.name)
	raw, ok, err := db.store.GetSlot(metaKey)
	if err != nil {
		return nil, ChunkMetadata{}, "", storeErr("get", metaKey, err)
	}
	if !ok {
		db.noteRecovery(Recovery{Reason: ReasonMetadataAbsent, Key: metaKey})
		return nil, ChunkMetadata{}, "", nil
	}
	meta, err := DecodeMetadata(raw)
	if err != nil {
		db.noteRecovery(Recovery{Reason: ReasonMetadataCorrupt, Key: metaKey, Err: err})
		return nil, ChunkMetadata{}, "", nil
	}
	if db.verbose {
		db.logger.Debug("slotdb: loaded metadata", "chunk_size", meta.ChunkSize, "total_chunks", meta.TotalChunks)
	}

	present, err := db.chunkIndices(meta.TotalChunks)
	if err != nil {
		return nil, ChunkMetadata{}, "", err
	}
	chunks := make([]string, 0, len(present))
	next := 0
	for _, i := range present {
		if i > next {
			db.recoverGap(next, i)
		}
		next = i + 1

		key := ChunkKey(db.name, i)
		chunk, ok, err := db.store.GetSlot(key)
		if err != nil {
			return nil, ChunkMetadata{}, "", storeErr("get", key, err)
		}
		if !ok {
			db.recoverGap(i, i+1)
			continue
		}
		if db.verbose {
			db.logger.Debug("slotdb: loaded chunk", "key", key, "len", len(chunk))
		}
		chunks = append(chunks, chunk)
	}
	if next < meta.TotalChunks {
		db.recoverGap(next, meta.TotalChunks)
	}

	encoded := JoinChunks(chunks)
	if encoded == "" && meta.TotalChunks > 0 {
		err := decodeErrf("document", encoded, nil, "all %d chunks missing", meta.TotalChunks)
		db.noteRecovery(Recovery{Reason: ReasonDocumentCorrupt, Key: metaKey, Err: err})
		return nil, ChunkMetadata{}, "", nil
	}
	doc, err := Decode(encoded)
	if err != nil {
		db.noteRecovery(Recovery{Reason: ReasonDocumentCorrupt, Key: metaKey, Err: err})
		return nil, ChunkMetadata{}, "", nil
	}
	return doc, meta, encoded, nil
}

// chunkIndices returns, in ascending order, the indices below total that
// have a chunk slot. Absent chunks are skipped rather than probed one by
// one, which keeps a corrupt huge totalChunks cheap.
func (db *DB) chunkIndices(total int) ([]int, error) {
	prefix := ChunkPrefix(db.name)
	keys, err := db.store.ListKeys(prefix)
	if err != nil {
		return nil, storeErr("list", prefix, err)
	}
	indices := make([]int, 0, min(len(keys), total))
	for _, k := range keys {
		if i, ok := parseChunkIndex(prefix, k); ok && i < total {
			indices = append(indices, i)
		}
	}
	slices.Sort(indices)
	return indices, nil
}

func (db *DB) recoverGap(from, to int) {
	var err error
	if to-from > 1 {
		err = fmt.Errorf("chunks %d..%d missing", from, to-1)
	}
	db.noteRecovery(Recovery{Reason: ReasonChunkAbsent, Key: ChunkKey(db.name, from), Err: err})
}

func (db *DB) noteRecovery(r Recovery) {
	r.Name = db.name
	if r.Reason == ReasonMetadataAbsent {
		db.logger.Debug("slotdb: no persisted document, starting empty")
	} else {
		db.stats.recoveries.Add(1)
		db.logger.Warn("slotdb: recovered from unreadable document", "reason", r.Reason.String(), "key", r.Key, "err", r.Err)
	}
	if db.onRecover != nil {
		db.onRecover(r)
	}
}

// save persists doc in full: metadata first, then removal of every existing
// chunk slot, then the new chunks. A crash after the metadata write leaves
// a totalChunks that the remaining chunk slots cannot satisfy, and the next
// load starts empty.
func (db *DB) save(doc Document) error {
	encoded := Encode(doc)
	chunks := SplitChunks(encoded, db.chunkSize)

	metaKey := MetaKey(db.name)
	meta := EncodeMetadata(ChunkMetadata{ChunkSize: db.chunkSize, TotalChunks: len(chunks)})
	if err := db.store.SetSlot(metaKey, meta); err != nil {
		return storeErr("set", metaKey, err)
	}
	db.stats.slotWrites.Add(1)

	prefix := ChunkPrefix(db.name)
	stale, err := db.store.ListKeys(prefix)
	if err != nil {
		return storeErr("list", prefix, err)
	}
	for _, key := range stale {
		if _, ok := parseChunkIndex(prefix, key); !ok {
			continue
		}
		if err := db.store.DeleteSlot(key); err != nil {
			return storeErr("delete", key, err)
		}
		db.stats.slotDeletes.Add(1)
	}

	for i, chunk := range chunks {
		key := ChunkKey(db.name, i)
		if err := db.store.SetSlot(key, chunk); err != nil {
			return storeErr("set", key, err)
		}
		db.stats.slotWrites.Add(1)
		if db.verbose {
			db.logger.Debug("slotdb: wrote chunk", "key", key, "len", len(chunk))
		}
	}

	db.stats.saves.Add(1)
	db.stats.observe(len(chunks), encoded)
	if db.verbose {
		db.logger.Debug("slotdb: saved", "keys", len(doc), "size", len(encoded), "total_chunks", len(chunks), "stale", len(stale))
	}
	return nil
}
