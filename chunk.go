package sctp

import (
	"encoding/binary"
	"fmt"
)

// ChunkType identifies the kind of information carried in a chunk.
// Type codes per RFC 4960 section 3.2.
type ChunkType uint8

// Chunk type codes implemented by this subset.
const (
	ChunkTypeData       ChunkType = 0
	ChunkTypeInit       ChunkType = 1
	ChunkTypeInitAck    ChunkType = 2
	ChunkTypeSack       ChunkType = 3
	ChunkTypeHeartbeat  ChunkType = 4
	ChunkTypeShutdown   ChunkType = 7
	ChunkTypeCookieEcho ChunkType = 10
	ChunkTypeCookieAck  ChunkType = 11
)

// String returns a human-readable name for the chunk type.
func (t ChunkType) String() string {
	switch t {
	case ChunkTypeData:
		return "DATA"
	case ChunkTypeInit:
		return "INIT"
	case ChunkTypeInitAck:
		return "INIT_ACK"
	case ChunkTypeSack:
		return "SACK"
	case ChunkTypeHeartbeat:
		return "HEARTBEAT"
	case ChunkTypeShutdown:
		return "SHUTDOWN"
	case ChunkTypeCookieEcho:
		return "COOKIE_ECHO"
	case ChunkTypeCookieAck:
		return "COOKIE_ACK"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Chunk is the interface implemented by every chunk variant.
// Each variant keeps its RFC field layout and validation rules
// co-located with its own Marshal/Unmarshal pair.
type Chunk interface {
	// Type returns the chunk type code written into the chunk header.
	Type() ChunkType
	// Marshal serializes the chunk including its 4-byte header and
	// trailing padding to a 4-byte boundary.
	Marshal() ([]byte, error)
}

// chunkHeaderSize is the fixed chunk header: type (1) + flags (1) + length (2).
const chunkHeaderSize = 4

// marshalChunk frames a chunk body with the common 4-byte chunk header
// and pads the result to a 4-byte boundary. The length field covers the
// header and body but not the padding, per RFC 4960 section 3.2.
func marshalChunk(typ ChunkType, flags uint8, body []byte) []byte {
	length := chunkHeaderSize + len(body)
	padded := (length + 3) &^ 3

	buf := make([]byte, padded)
	buf[0] = uint8(typ)
	buf[1] = flags
	binary.BigEndian.PutUint16(buf[2:], uint16(length))
	copy(buf[chunkHeaderSize:], body)

	return buf
}

// unmarshalChunkHeader parses the common chunk header from raw and
// returns the type, flags, body slice and the total number of bytes the
// chunk occupies in the buffer (header + body + padding). Trailing
// padding may legitimately be absent at the end of a packet.
func unmarshalChunkHeader(raw []byte) (typ ChunkType, flags uint8, body []byte, consumed int, err error) {
	if len(raw) < chunkHeaderSize {
		return 0, 0, nil, 0, fmt.Errorf("chunk too short: got %d bytes, need at least %d", len(raw), chunkHeaderSize)
	}

	typ = ChunkType(raw[0])
	flags = raw[1]
	length := int(binary.BigEndian.Uint16(raw[2:]))

	if length < chunkHeaderSize {
		return 0, 0, nil, 0, fmt.Errorf("chunk length field %d below header size", length)
	}
	if length > len(raw) {
		return 0, 0, nil, 0, fmt.Errorf("chunk truncated: length field %d exceeds %d available bytes", length, len(raw))
	}

	body = raw[chunkHeaderSize:length]

	consumed = (length + 3) &^ 3
	if consumed > len(raw) {
		consumed = len(raw)
	}

	return typ, flags, body, consumed, nil
}

// UnknownChunk represents a well-framed chunk whose type code is not in
// the implemented set. Callers can skip it without aborting the packet.
type UnknownChunk struct {
	Code  uint8
	Flags uint8
	Value []byte
}

// Type returns the raw type code of the unrecognized chunk.
func (c *UnknownChunk) Type() ChunkType { return ChunkType(c.Code) }

// Marshal re-frames the unrecognized chunk verbatim.
func (c *UnknownChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkType(c.Code), c.Flags, c.Value), nil
}

// decodeChunk parses a single chunk from the front of raw and returns
// the decoded variant along with the number of bytes consumed
// (including padding). Unknown-but-well-framed type codes are not an
// error; they decode to *UnknownChunk.
func decodeChunk(raw []byte) (Chunk, int, error) {
	typ, flags, body, consumed, err := unmarshalChunkHeader(raw)
	if err != nil {
		return nil, 0, err
	}

	var c Chunk
	switch typ {
	case ChunkTypeData:
		d := &DataChunk{}
		err = d.unmarshalBody(flags, body)
		c = d
	case ChunkTypeInit:
		i := &InitChunk{}
		err = i.unmarshalBody(body)
		c = i
	case ChunkTypeInitAck:
		ia := &InitAckChunk{}
		err = ia.unmarshalBody(body)
		c = ia
	case ChunkTypeSack:
		s := &SackChunk{}
		err = s.unmarshalBody(body)
		c = s
	case ChunkTypeHeartbeat:
		c = &HeartbeatChunk{}
	case ChunkTypeShutdown:
		c = &ShutdownChunk{}
	case ChunkTypeCookieEcho:
		ce := &CookieEchoChunk{}
		err = ce.unmarshalBody(body)
		c = ce
	case ChunkTypeCookieAck:
		c = &CookieAckChunk{}
	default:
		value := make([]byte, len(body))
		copy(value, body)
		c = &UnknownChunk{Code: uint8(typ), Flags: flags, Value: value}
	}

	if err != nil {
		return nil, 0, fmt.Errorf("decode %s chunk: %w", typ, err)
	}

	return c, consumed, nil
}
