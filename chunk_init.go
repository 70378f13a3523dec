package sctp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrZeroInitiateTag reports an INIT or INIT_ACK chunk carrying the
// reserved initiate tag value 0, which RFC 4960 forbids. Accepting it
// would let a peer establish a degenerate association.
var ErrZeroInitiateTag = errors.New("initiate tag must not be 0")

// initChunkFixedSize is the mandatory INIT/INIT_ACK body:
// initiate tag (4) + a_rwnd (4) + outbound streams (2) +
// inbound streams (2) + initial TSN (4).
const initChunkFixedSize = 16

// paramStateCookie is the variable-parameter type code for the state
// cookie carried by INIT_ACK, per RFC 4960 section 3.3.3.1.
const paramStateCookie uint16 = 7

// paramHeaderSize is the type (2) + length (2) prefix of every
// variable parameter.
const paramHeaderSize = 4

// InitChunk starts the four-way handshake. A bare INIT chunk encodes
// to exactly 20 bytes: 4 header + 16 fixed body.
type InitChunk struct {
	InitiateTag        uint32
	ARwnd              uint32
	NumOutboundStreams uint16
	NumInboundStreams  uint16
	InitialTSN         uint32
}

// Type returns ChunkTypeInit.
func (c *InitChunk) Type() ChunkType { return ChunkTypeInit }

// Marshal serializes the INIT chunk. Flags are reserved and sent as 0.
func (c *InitChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkTypeInit, 0, marshalInitFixed(c.InitiateTag, c.ARwnd, c.NumOutboundStreams, c.NumInboundStreams, c.InitialTSN)), nil
}

// unmarshalBody parses the fixed INIT body and rejects the reserved
// initiate tag 0 at decode time.
func (c *InitChunk) unmarshalBody(body []byte) error {
	fixed, err := unmarshalInitFixed(body)
	if err != nil {
		return err
	}
	c.InitiateTag = fixed.initiateTag
	c.ARwnd = fixed.aRwnd
	c.NumOutboundStreams = fixed.numOutbound
	c.NumInboundStreams = fixed.numInbound
	c.InitialTSN = fixed.initialTSN
	return nil
}

// InitAckChunk answers an INIT. It carries the same fixed body plus a
// variable-length state cookie parameter that the initiator must echo
// back verbatim in COOKIE_ECHO.
type InitAckChunk struct {
	InitiateTag        uint32
	ARwnd              uint32
	NumOutboundStreams uint16
	NumInboundStreams  uint16
	InitialTSN         uint32

	StateCookie []byte
}

// Type returns ChunkTypeInitAck.
func (c *InitAckChunk) Type() ChunkType { return ChunkTypeInitAck }

// Marshal serializes the INIT_ACK chunk: fixed body followed by the
// state cookie as a TLV parameter.
func (c *InitAckChunk) Marshal() ([]byte, error) {
	fixed := marshalInitFixed(c.InitiateTag, c.ARwnd, c.NumOutboundStreams, c.NumInboundStreams, c.InitialTSN)

	paramLen := paramHeaderSize + len(c.StateCookie)
	paramPadded := (paramLen + 3) &^ 3

	body := make([]byte, initChunkFixedSize+paramPadded)
	copy(body, fixed)
	binary.BigEndian.PutUint16(body[initChunkFixedSize:], paramStateCookie)
	binary.BigEndian.PutUint16(body[initChunkFixedSize+2:], uint16(paramLen))
	copy(body[initChunkFixedSize+paramHeaderSize:], c.StateCookie)

	return marshalChunk(ChunkTypeInitAck, 0, body), nil
}

// unmarshalBody parses the fixed body, then scans the variable
// parameters for the state cookie. Unrecognized parameters are skipped.
func (c *InitAckChunk) unmarshalBody(body []byte) error {
	fixed, err := unmarshalInitFixed(body)
	if err != nil {
		return err
	}
	c.InitiateTag = fixed.initiateTag
	c.ARwnd = fixed.aRwnd
	c.NumOutboundStreams = fixed.numOutbound
	c.NumInboundStreams = fixed.numInbound
	c.InitialTSN = fixed.initialTSN

	offset := initChunkFixedSize
	for offset < len(body) {
		if len(body)-offset < paramHeaderSize {
			return fmt.Errorf("trailing parameter header truncated at offset %d", offset)
		}
		ptype := binary.BigEndian.Uint16(body[offset:])
		plen := int(binary.BigEndian.Uint16(body[offset+2:]))
		if plen < paramHeaderSize || offset+plen > len(body) {
			return fmt.Errorf("parameter type %d has invalid length %d", ptype, plen)
		}
		if ptype == paramStateCookie {
			c.StateCookie = make([]byte, plen-paramHeaderSize)
			copy(c.StateCookie, body[offset+paramHeaderSize:offset+plen])
		}
		offset += (plen + 3) &^ 3
	}

	return nil
}

// initFixed holds the mandatory fields shared by INIT and INIT_ACK.
type initFixed struct {
	initiateTag uint32
	aRwnd       uint32
	numOutbound uint16
	numInbound  uint16
	initialTSN  uint32
}

func marshalInitFixed(tag, aRwnd uint32, outbound, inbound uint16, tsn uint32) []byte {
	body := make([]byte, initChunkFixedSize)
	binary.BigEndian.PutUint32(body[0:], tag)
	binary.BigEndian.PutUint32(body[4:], aRwnd)
	binary.BigEndian.PutUint16(body[8:], outbound)
	binary.BigEndian.PutUint16(body[10:], inbound)
	binary.BigEndian.PutUint32(body[12:], tsn)
	return body
}

func unmarshalInitFixed(body []byte) (initFixed, error) {
	if len(body) < initChunkFixedSize {
		return initFixed{}, fmt.Errorf("body too short: got %d bytes, need at least %d", len(body), initChunkFixedSize)
	}

	fixed := initFixed{
		initiateTag: binary.BigEndian.Uint32(body[0:]),
		aRwnd:       binary.BigEndian.Uint32(body[4:]),
		numOutbound: binary.BigEndian.Uint16(body[8:]),
		numInbound:  binary.BigEndian.Uint16(body[10:]),
		initialTSN:  binary.BigEndian.Uint32(body[12:]),
	}

	if fixed.initiateTag == 0 {
		return initFixed{}, ErrZeroInitiateTag
	}

	return fixed, nil
}
