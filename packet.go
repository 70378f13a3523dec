package sctp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// commonHeaderSize is the fixed SCTP common header: source port (2) +
// destination port (2) + verification tag (4) + checksum (4).
const commonHeaderSize = 12

// ErrChecksumMismatch reports a packet whose CRC-32c does not match its
// contents. The packet must be discarded, never partially decoded.
var ErrChecksumMismatch = errors.New("packet checksum mismatch")

// Packet is the SCTP wire unit: a 12-byte common header followed by
// zero or more chunks. Multiple chunks per packet (bundling) are
// handled by the same decode loop as the single-chunk case.
type Packet struct {
	SourcePort      uint16
	DestinationPort uint16
	VerificationTag uint32
	Chunks          []Chunk
}

// Marshal serializes the packet and stamps the CRC-32c checksum into
// the common header. The checksum is computed over the full packet
// with the checksum field zeroed, then stored little-endian per
// RFC 4960 Appendix B.
func (p *Packet) Marshal() ([]byte, error) {
	buf := make([]byte, commonHeaderSize)
	binary.BigEndian.PutUint16(buf[0:], p.SourcePort)
	binary.BigEndian.PutUint16(buf[2:], p.DestinationPort)
	binary.BigEndian.PutUint32(buf[4:], p.VerificationTag)
	// Checksum field stays zero until the end.

	for i, c := range p.Chunks {
		raw, err := c.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal chunk %d (%s): %w", i, c.Type(), err)
		}
		buf = append(buf, raw...)
	}

	binary.LittleEndian.PutUint32(buf[8:], CalculateChecksum(buf))

	log.Trace().
		Uint16("srcPort", p.SourcePort).
		Uint16("dstPort", p.DestinationPort).
		Uint32("tag", p.VerificationTag).
		Int("chunks", len(p.Chunks)).
		Int("bytes", len(buf)).
		Msg("marshaled packet")

	return buf, nil
}

// Unmarshal parses a packet from raw bytes. The checksum is recomputed
// and compared before any chunk-level decoding; a mismatch is a decode
// error, never a silent truncation.
func (p *Packet) Unmarshal(raw []byte) error {
	if len(raw) < commonHeaderSize {
		return fmt.Errorf("packet too short: got %d bytes, need at least %d", len(raw), commonHeaderSize)
	}

	p.SourcePort = binary.BigEndian.Uint16(raw[0:])
	p.DestinationPort = binary.BigEndian.Uint16(raw[2:])
	p.VerificationTag = binary.BigEndian.Uint32(raw[4:])
	gotChecksum := binary.LittleEndian.Uint32(raw[8:])

	// Recompute over a copy with the checksum field zeroed.
	scratch := make([]byte, len(raw))
	copy(scratch, raw)
	scratch[8], scratch[9], scratch[10], scratch[11] = 0, 0, 0, 0
	if want := CalculateChecksum(scratch); want != gotChecksum {
		log.Warn().
			Uint32("got", gotChecksum).
			Uint32("want", want).
			Msg("rejecting packet with bad checksum")
		return fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, gotChecksum, want)
	}

	p.Chunks = nil
	offset := commonHeaderSize
	for offset < len(raw) {
		c, consumed, err := decodeChunk(raw[offset:])
		if err != nil {
			return fmt.Errorf("chunk at offset %d: %w", offset, err)
		}
		p.Chunks = append(p.Chunks, c)
		offset += consumed
	}

	return nil
}

// IsSCTPData is a coarse pre-filter for demultiplexing transport
// traffic: anything shorter than the common header cannot be an SCTP
// packet. Callers still need a full Unmarshal to accept the buffer.
func IsSCTPData(raw []byte) bool {
	return len(raw) >= commonHeaderSize
}
