package slotdb

import (
	"maps"
	"unicode/utf8"
)

// Get returns the value stored under key.
func (db *DB) Get(key string) (Value, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.doc[key]
	return v, ok
}

func (db *DB) Has(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.doc[key]
	return ok
}

// GetAll returns a copy of the whole document. Changing the returned map
// does not affect the database.
func (db *DB) GetAll() Document {
	db.mu.Lock()
	defer db.mu.Unlock()
	return maps.Clone(db.doc)
}

// Keys returns all keys in sorted order.
func (db *DB) Keys() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.doc.Keys()
}

func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.doc)
}

// Set stores value under key and saves the document. The value is converted
// with ValueOf first; if that fails, or key is not valid UTF-8, Set returns
// *InvalidValueError and nothing changes.
func (db *DB) Set(key string, value any) error {
	if !utf8.ValidString(key) {
		return invalidUTF8(key, "key")
	}
	v, err := ValueOf(value)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.mutate(func(doc Document) bool {
		doc[key] = v
		return true
	})
}

// Delete removes key and saves the document. Deleting a missing key does
// not write anything.
func (db *DB) Delete(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.mutate(func(doc Document) bool {
		if _, ok := doc[key]; !ok {
			return false
		}
		delete(doc, key)
		return true
	})
}

// Clear empties the document and saves it, even if it was already empty.
func (db *DB) Clear() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.mutate(func(doc Document) bool {
		clear(doc)
		return true
	})
}

// mutate applies f to a copy of the document and saves the copy. The
// in-memory document only changes once the save has succeeded.
func (db *DB) mutate(f func(doc Document) bool) error {
	next := maps.Clone(db.doc)
	if !f(next) {
		return nil
	}
	if err := db.save(next); err != nil {
		db.logger.Error("slotdb: save failed", "err", err)
		return err
	}
	db.doc, db.state = next, StateReady
	return nil
}
