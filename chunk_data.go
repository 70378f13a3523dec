package sctp

import (
	"encoding/binary"
	"fmt"
)

// DATA chunk flag bits per RFC 4960 section 3.3.1.
const (
	dataFlagEndFragment   uint8 = 1 << 0 // E bit
	dataFlagBeginFragment uint8 = 1 << 1 // B bit
	dataFlagUnordered     uint8 = 1 << 2 // U bit
	dataFlagImmediate     uint8 = 1 << 3 // I bit (RFC 7053)
)

// dataChunkFixedSize is the fixed part of the DATA body:
// TSN (4) + stream id (2) + stream seq (2) + PPID (4).
const dataChunkFixedSize = 12

// DataChunk carries one user-data fragment on a stream.
//
// Fragmentation flags: an unfragmented message sets both BeginFragment
// and EndFragment. Unordered data carries no meaningful stream
// sequence number. Immediate requests a SACK without delay.
type DataChunk struct {
	BeginFragment bool
	EndFragment   bool
	Unordered     bool
	Immediate     bool

	TSN       uint32
	StreamID  uint16
	StreamSeq uint16
	PPID      PayloadProtocolIdentifier
	Payload   []byte
}

// Type returns ChunkTypeData.
func (c *DataChunk) Type() ChunkType { return ChunkTypeData }

// Marshal serializes the DATA chunk: header, 12-byte fixed body, then
// the payload verbatim, padded to a 4-byte boundary. The payload is
// binary-safe; a zero-length payload is permitted in this subset.
func (c *DataChunk) Marshal() ([]byte, error) {
	body := make([]byte, dataChunkFixedSize+len(c.Payload))
	binary.BigEndian.PutUint32(body[0:], c.TSN)
	binary.BigEndian.PutUint16(body[4:], c.StreamID)
	binary.BigEndian.PutUint16(body[6:], c.StreamSeq)
	binary.BigEndian.PutUint32(body[8:], uint32(c.PPID))
	copy(body[dataChunkFixedSize:], c.Payload)

	return marshalChunk(ChunkTypeData, c.flagByte(), body), nil
}

// flagByte packs the four flag booleans into the chunk flags byte.
func (c *DataChunk) flagByte() uint8 {
	var flags uint8
	if c.EndFragment {
		flags |= dataFlagEndFragment
	}
	if c.BeginFragment {
		flags |= dataFlagBeginFragment
	}
	if c.Unordered {
		flags |= dataFlagUnordered
	}
	if c.Immediate {
		flags |= dataFlagImmediate
	}
	return flags
}

// unmarshalBody recovers every field byte-exact from the chunk body.
func (c *DataChunk) unmarshalBody(flags uint8, body []byte) error {
	if len(body) < dataChunkFixedSize {
		return fmt.Errorf("body too short: got %d bytes, need at least %d", len(body), dataChunkFixedSize)
	}

	c.EndFragment = flags&dataFlagEndFragment != 0
	c.BeginFragment = flags&dataFlagBeginFragment != 0
	c.Unordered = flags&dataFlagUnordered != 0
	c.Immediate = flags&dataFlagImmediate != 0

	c.TSN = binary.BigEndian.Uint32(body[0:])
	c.StreamID = binary.BigEndian.Uint16(body[4:])
	c.StreamSeq = binary.BigEndian.Uint16(body[6:])
	c.PPID = PayloadProtocolIdentifier(binary.BigEndian.Uint32(body[8:]))

	c.Payload = make([]byte, len(body)-dataChunkFixedSize)
	copy(c.Payload, body[dataChunkFixedSize:])

	return nil
}

// String makes DataChunk printable for packet traces.
func (c *DataChunk) String() string {
	return fmt.Sprintf("DATA tsn=%d stream=%d seq=%d ppid=%d len=%d",
		c.TSN, c.StreamID, c.StreamSeq, uint32(c.PPID), len(c.Payload))
}
