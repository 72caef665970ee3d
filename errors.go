package slotdb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be a positive integer")
	ErrInvalidName      = errors.New("invalid database name")
	ErrClosed           = errors.New("store closed")
)

// InvalidValueError is returned when a Go value cannot be represented as
// a Value. Path locates the offending leaf, e.g. "items[2].owner".
type InvalidValueError struct {
	Path string
	Type string
	Msg  string
}

func (e *InvalidValueError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid value")
	if e.Path != "" {
		buf.WriteString(" at ")
		buf.WriteString(e.Path)
	}
	buf.WriteString(": ")
	if e.Msg != "" {
		buf.WriteString(e.Msg)
	} else {
		buf.WriteString("unsupported type ")
		buf.WriteString(e.Type)
	}
	return buf.String()
}

// DecodeError reports malformed persisted data. What names the thing being
// decoded ("metadata" or "document").
type DecodeError struct {
	What string
	Data string
	Err  error
}

func decodeErrf(what, data string, err error, format string, args ...any) error {
	if format != "" {
		if err != nil {
			err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
		} else {
			err = fmt.Errorf(format, args...)
		}
	}
	return &DecodeError{what, data, err}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		return fmt.Sprintf("decoding %s: %v: (%d) %q", e.What, e.Err, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	return fmt.Sprintf("decoding %s: %v: (%d) %q...%q", e.What, e.Err, n, p, s)
}

// StoreError wraps a failed Store call.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func storeErr(op, key string, err error) error {
	return &StoreError{op, key, err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("slotdb: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("slotdb: %s %s: %v", e.Op, e.Key, e.Err)
}

// RecoveryReason says why loading fell back to an empty document.
type RecoveryReason int

const (
	ReasonMetadataAbsent RecoveryReason = iota + 1
	ReasonMetadataCorrupt
	ReasonChunkAbsent
	ReasonDocumentCorrupt
)

func (r RecoveryReason) String() string {
	switch r {
	case ReasonMetadataAbsent:
		return "metadata absent"
	case ReasonMetadataCorrupt:
		return "metadata corrupt"
	case ReasonChunkAbsent:
		return "chunk absent"
	case ReasonDocumentCorrupt:
		return "document corrupt"
	default:
		return fmt.Sprintf("RecoveryReason(%d)", int(r))
	}
}

// Recovery describes one event during load that was recovered locally
// instead of being returned to the caller. ReasonChunkAbsent events are
// reported per missing chunk; they are followed by a ReasonDocumentCorrupt
// event when the truncated document fails to decode.
type Recovery struct {
	Name   string
	Reason RecoveryReason
	Key    string
	Err    error
}

func (r Recovery) Error() string {
	var buf strings.Builder
	buf.WriteString(r.Name)
	buf.WriteString(": ")
	buf.WriteString(r.Reason.String())
	if r.Key != "" {
		buf.WriteString(" (")
		buf.WriteString(r.Key)
		buf.WriteString(")")
	}
	if r.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(r.Err.Error())
	}
	return buf.String()
}

func (r Recovery) Unwrap() error {
	return r.Err
}
