package slotdb

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

type Stats struct {
	Loads       uint64
	Saves       uint64
	Recoveries  uint64
	SlotWrites  uint64
	SlotDeletes uint64

	// TotalChunks and EncodedSize describe the document as last loaded or
	// saved. Digest is the xxhash64 of its encoding, or 0 if empty.
	TotalChunks int
	EncodedSize int
	Digest      uint64
}

type counters struct {
	loads       atomic.Uint64
	saves       atomic.Uint64
	recoveries  atomic.Uint64
	slotWrites  atomic.Uint64
	slotDeletes atomic.Uint64

	totalChunks atomic.Int64
	encodedSize atomic.Int64
	digest      atomic.Uint64
}

func (c *counters) observe(totalChunks int, encoded string) {
	c.totalChunks.Store(int64(totalChunks))
	c.encodedSize.Store(int64(len(encoded)))
	c.digest.Store(digest(encoded))
}

func (db *DB) Stats() Stats {
	c := &db.stats
	return Stats{
		Loads:       c.loads.Load(),
		Saves:       c.saves.Load(),
		Recoveries:  c.recoveries.Load(),
		SlotWrites:  c.slotWrites.Load(),
		SlotDeletes: c.slotDeletes.Load(),
		TotalChunks: int(c.totalChunks.Load()),
		EncodedSize: int(c.encodedSize.Load()),
		Digest:      c.digest.Load(),
	}
}

func digest(encoded string) uint64 {
	if encoded == "" {
		return 0
	}
	return xxhash.Sum64String(encoded)
}
