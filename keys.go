package slotdb

import (
	"fmt"
	"strconv"
	"strings"
)

const slotKeyPrefix = "db_"

// MetaKey returns the key of the metadata slot of database name.
func MetaKey(name string) string {
	return slotKeyPrefix + name
}

// ChunkPrefix is the common prefix of all chunk slot keys of database name.
func ChunkPrefix(name string) string {
	return slotKeyPrefix + name + "_"
}

// ChunkKey returns the key of chunk i of database name.
func ChunkKey(name string, i int) string {
	return ChunkPrefix(name) + strconv.Itoa(i)
}

// parseChunkIndex extracts the chunk index from a key that starts with
// prefix. Only canonical decimal indices count, so "db_a_b" or "db_a_007"
// are not chunks of database "a".
func parseChunkIndex(prefix, key string) (int, bool) {
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return 0, false
	}
	suffix := key[len(prefix):]
	if len(suffix) > 1 && suffix[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(suffix); i++ {
		if c := suffix[i]; c < '0' || c > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return i, true
}

// validateName rejects names whose metadata key is also a chunk key of
// another name: the metadata slot db_a_1 of "a_1" is chunk 1 of "a", and
// every save of "a" would delete it.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		if _, ok := parseChunkIndex(ChunkPrefix(name[:i]), MetaKey(name)); ok {
			return fmt.Errorf("%w: %q ends in a chunk index and collides with the chunk slots of %q", ErrInvalidName, name, name[:i])
		}
	}
	return nil
}
