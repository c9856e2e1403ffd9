// Package serialize provides the length-prefixed, big-endian byte
// sink/source helpers consumed by Question and Answer vtables.
//
// All multi-byte integers are big-endian. Blobs are length-prefixed
// with an 8-byte big-endian length. Reading past the end of a Source
// reports ErrTruncated, distinct from ErrMalformed, which indicates a
// well-typed but inconsistent payload (e.g. a length too large to
// represent as an int on this platform).
package serialize

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated indicates deserialization ran out of input.
	ErrTruncated = errors.New("serialize: truncated input")

	// ErrMalformed indicates a well-typed but inconsistent payload.
	ErrMalformed = errors.New("serialize: malformed input")
)

// Sink accumulates serialized bytes. The zero value is ready to use.
type Sink struct {
	buf bytes.Buffer
}

// NewSink returns a Sink with the given initial capacity hint.
func NewSink(sizeHint int) *Sink {
	s := &Sink{}
	if sizeHint > 0 {
		s.buf.Grow(sizeHint)
	}
	return s
}

// Bytes returns the accumulated serialized bytes. The returned slice
// aliases the Sink's internal buffer and must not be mutated.
func (s *Sink) Bytes() []byte { return s.buf.Bytes() }

// WriteUint8 appends a single byte.
func (s *Sink) WriteUint8(v uint8) { s.buf.WriteByte(v) }

// WriteUint32 appends a big-endian uint32.
func (s *Sink) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf.Write(b[:])
}

// WriteUint64 appends a big-endian uint64.
func (s *Sink) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.buf.Write(b[:])
}

// WriteInt64 appends a big-endian int64.
func (s *Sink) WriteInt64(v int64) { s.WriteUint64(uint64(v)) }

// WriteBlob appends an 8-byte big-endian length prefix followed by p.
// A zero-length blob writes only the 8-byte length prefix.
func (s *Sink) WriteBlob(p []byte) {
	s.WriteUint64(uint64(len(p)))
	s.buf.Write(p)
}

// WriteRaw appends p without any length prefix. Use for fixed-width
// fields (e.g. a 16-byte type UUID) where the reader already knows
// the length.
func (s *Sink) WriteRaw(p []byte) { s.buf.Write(p) }

// Source reads serialized bytes produced by a Sink. The zero value is
// not usable; construct with NewSource.
type Source struct {
	b   []byte
	off int
}

// NewSource wraps p for sequential reading. p is not copied; the
// caller must not mutate it while the Source is in use.
func NewSource(p []byte) *Source { return &Source{b: p} }

// Remaining reports the number of unread bytes.
func (s *Source) Remaining() int { return len(s.b) - s.off }

// ReadUint8 reads a single byte.
func (s *Source) ReadUint8() (uint8, error) {
	if s.Remaining() < 1 {
		return 0, ErrTruncated
	}
	v := s.b[s.off]
	s.off++
	return v, nil
}

// ReadUint32 reads a big-endian uint32.
func (s *Source) ReadUint32() (uint32, error) {
	if s.Remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(s.b[s.off:])
	s.off += 4
	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (s *Source) ReadUint64() (uint64, error) {
	if s.Remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(s.b[s.off:])
	s.off += 8
	return v, nil
}

// ReadInt64 reads a big-endian int64.
func (s *Source) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

// ReadBlob reads an 8-byte big-endian length prefix followed by that
// many bytes. The returned slice is a copy, safe to retain. A blob
// whose declared length exceeds both the remaining input and what fits
// in an int on this platform is ErrMalformed; running out of input
// while reading the payload is ErrTruncated.
func (s *Source) ReadBlob() ([]byte, error) {
	n, err := s.ReadUint64()
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt {
		return nil, fmt.Errorf("%w: blob length %d exceeds platform int", ErrMalformed, n)
	}
	length := int(n)
	if s.Remaining() < length {
		return nil, ErrTruncated
	}
	// A zero-length blob still yields a non-nil slice, per the
	// boundary behavior of an in-memory sink/source: an empty read
	// returns a non-NULL pointer, not an untyped nil.
	out := make([]byte, length)
	copy(out, s.b[s.off:s.off+length])
	s.off += length
	return out, nil
}

// ReadRaw reads exactly n bytes with no length prefix. The returned
// slice is a copy.
func (s *Source) ReadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	if s.Remaining() < n {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, s.b[s.off:s.off+n])
	s.off += n
	return out, nil
}
