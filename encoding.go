package slotdb

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode returns the canonical JSON encoding of doc. Object keys are
// emitted in sorted order at every level, so equal documents always encode
// to identical strings. The empty document encodes to the empty string and
// therefore occupies no chunk slots.
func Encode(doc Document) string {
	if len(doc) == 0 {
		return ""
	}
	m := make(map[string]any, len(doc))
	for k, v := range doc {
		m[k] = v.Any()
	}
	raw, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Errorf("failed to encode document: %w", err))
	}
	return string(raw)
}

// Decode parses an encoded document. It fails with *DecodeError when s is
// not valid JSON or its top-level value is not an object. The empty string
// decodes to an empty document.
func Decode(s string) (Document, error) {
	if s == "" {
		return Document{}, nil
	}
	var raw any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, decodeErrf("document", s, err, "")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, decodeErrf("document", s, nil, "top-level value is %s, not an object", jsonKindOf(raw))
	}
	var c converter
	doc := make(Document, len(m))
	for k, item := range m {
		v, err := c.convert(item, k)
		if err != nil {
			return nil, decodeErrf("document", s, err, "")
		}
		doc[k] = v
	}
	return doc, nil
}

func jsonKindOf(raw any) Kind {
	switch raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	default:
		return KindObject
	}
}

// ChunkMetadata is the content of the metadata slot: how the last save
// split the encoded document.
type ChunkMetadata struct {
	ChunkSize   int `json:"chunkSize"`
	TotalChunks int `json:"totalChunks"`
}

func EncodeMetadata(meta ChunkMetadata) string {
	return string(must(json.Marshal(meta)))
}

// DecodeMetadata parses a metadata slot. Both fields must be present,
// chunkSize must be positive and totalChunks must not be negative.
func DecodeMetadata(s string) (ChunkMetadata, error) {
	var raw struct {
		ChunkSize   *int `json:"chunkSize"`
		TotalChunks *int `json:"totalChunks"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(&raw); err != nil {
		return ChunkMetadata{}, decodeErrf("metadata", s, err, "")
	}
	if dec.More() {
		return ChunkMetadata{}, decodeErrf("metadata", s, nil, "trailing data")
	}
	switch {
	case raw.ChunkSize == nil:
		return ChunkMetadata{}, decodeErrf("metadata", s, nil, "missing chunkSize")
	case raw.TotalChunks == nil:
		return ChunkMetadata{}, decodeErrf("metadata", s, nil, "missing totalChunks")
	case *raw.ChunkSize <= 0:
		return ChunkMetadata{}, decodeErrf("metadata", s, nil, "chunkSize %d is not positive", *raw.ChunkSize)
	case *raw.TotalChunks < 0:
		return ChunkMetadata{}, decodeErrf("metadata", s, nil, "totalChunks %d is negative", *raw.TotalChunks)
	}
	return ChunkMetadata{ChunkSize: *raw.ChunkSize, TotalChunks: *raw.TotalChunks}, nil
}
