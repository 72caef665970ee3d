package slotdb

import (
	"strings"
	"unicode/utf8"
)

// SplitChunks partitions s into consecutive pieces of at most maxLen
// characters (runes) each, so that no piece ends inside a UTF-8 sequence.
// Only the last piece may be shorter than maxLen. The empty string yields no
// pieces. SplitChunks panics if maxLen is not positive; Open rejects such
// chunk sizes before they get here.
func SplitChunks(s string, maxLen int) []string {
	if maxLen <= 0 {
		panic(ErrInvalidChunkSize)
	}
	if s == "" {
		return nil
	}
	chunks := make([]string, 0, chunkCount(s, maxLen))
	start, n := 0, 0
	for i := range s {
		if n == maxLen {
			chunks = append(chunks, s[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, s[start:])
}

// JoinChunks concatenates chunks in order; it is the exact inverse of
// SplitChunks.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, "")
}

// chunkCount returns the number of pieces SplitChunks(s, maxLen) produces.
func chunkCount(s string, maxLen int) int {
	n := utf8.RuneCountInString(s)
	return (n + maxLen - 1) / maxLen
}
