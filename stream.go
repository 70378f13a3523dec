package sctp

import "fmt"

// Stream is the per-stream state an association keeps: identity,
// ordering mode, and the next stream sequence number for ordered
// sends. A Stream is owned exclusively by its Association; pass stream
// ids across boundaries, not Stream pointers.
type Stream struct {
	ID      uint16
	Ordered bool

	nextSSN uint16
}

// NextSequence returns the stream sequence number to stamp on the next
// ordered message and advances the counter (mod 2^16). Unordered
// streams always stamp 0.
func (s *Stream) NextSequence() uint16 {
	if !s.Ordered {
		return 0
	}
	ssn := s.nextSSN
	s.nextSSN++
	return ssn
}

// String makes Stream printable for diagnostics.
func (s *Stream) String() string {
	return fmt.Sprintf("stream %d ordered=%t nextSSN=%d", s.ID, s.Ordered, s.nextSSN)
}

// tsnLessThan compares two TSNs with wrap-around handling. Uses serial
// number arithmetic (RFC 1982): a < b iff (a - b) as signed is
// negative. Correctly handles wrap from 0xFFFFFFFF to 0.
func tsnLessThan(a, b uint32) bool {
	return int32(a-b) < 0
}

// tsnLessThanOrEqual returns true if a <= b in TSN space.
func tsnLessThanOrEqual(a, b uint32) bool {
	return a == b || tsnLessThan(a, b)
}

// tsnGreaterThan returns true if a > b in TSN space.
func tsnGreaterThan(a, b uint32) bool {
	return int32(a-b) > 0
}
