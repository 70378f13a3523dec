package sctp

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// sackChunkFixedSize is the mandatory SACK body: cumulative TSN ack (4)
// + a_rwnd (4) + gap-ack block count (2) + duplicate TSN count (2).
const sackChunkFixedSize = 12

// GapAckBlock describes a contiguous run of TSNs received beyond the
// cumulative ack point. Start and End are offsets relative to the
// cumulative TSN; a single received TSN has Start == End.
type GapAckBlock struct {
	Start uint16
	End   uint16
}

// SackChunk selectively acknowledges received DATA chunks: everything
// up to CumulativeTSNAck arrived contiguously, each gap-ack block names
// an out-of-order run beyond it, and DuplicateTSNs lists TSNs received
// more than once.
type SackChunk struct {
	CumulativeTSNAck uint32
	ARwnd            uint32
	GapAckBlocks     []GapAckBlock
	DuplicateTSNs    []uint32
}

// Type returns ChunkTypeSack.
func (c *SackChunk) Type() ChunkType { return ChunkTypeSack }

// Marshal serializes the SACK chunk: 12-byte fixed body, then
// 4 bytes per gap-ack block and 4 bytes per duplicate TSN, in order.
func (c *SackChunk) Marshal() ([]byte, error) {
	body := make([]byte, sackChunkFixedSize+4*len(c.GapAckBlocks)+4*len(c.DuplicateTSNs))
	binary.BigEndian.PutUint32(body[0:], c.CumulativeTSNAck)
	binary.BigEndian.PutUint32(body[4:], c.ARwnd)
	binary.BigEndian.PutUint16(body[8:], uint16(len(c.GapAckBlocks)))
	binary.BigEndian.PutUint16(body[10:], uint16(len(c.DuplicateTSNs)))

	offset := sackChunkFixedSize
	for _, block := range c.GapAckBlocks {
		binary.BigEndian.PutUint16(body[offset:], block.Start)
		binary.BigEndian.PutUint16(body[offset+2:], block.End)
		offset += 4
	}
	for _, tsn := range c.DuplicateTSNs {
		binary.BigEndian.PutUint32(body[offset:], tsn)
		offset += 4
	}

	return marshalChunk(ChunkTypeSack, 0, body), nil
}

// unmarshalBody reconstructs both lists exactly, preserving order.
func (c *SackChunk) unmarshalBody(body []byte) error {
	if len(body) < sackChunkFixedSize {
		return fmt.Errorf("body too short: got %d bytes, need at least %d", len(body), sackChunkFixedSize)
	}

	c.CumulativeTSNAck = binary.BigEndian.Uint32(body[0:])
	c.ARwnd = binary.BigEndian.Uint32(body[4:])
	numGaps := int(binary.BigEndian.Uint16(body[8:]))
	numDups := int(binary.BigEndian.Uint16(body[10:]))

	need := sackChunkFixedSize + 4*numGaps + 4*numDups
	if len(body) < need {
		return fmt.Errorf("body too short for %d gap blocks and %d duplicates: got %d bytes, need %d",
			numGaps, numDups, len(body), need)
	}

	offset := sackChunkFixedSize
	c.GapAckBlocks = nil
	for i := 0; i < numGaps; i++ {
		c.GapAckBlocks = append(c.GapAckBlocks, GapAckBlock{
			Start: binary.BigEndian.Uint16(body[offset:]),
			End:   binary.BigEndian.Uint16(body[offset+2:]),
		})
		offset += 4
	}

	c.DuplicateTSNs = nil
	for i := 0; i < numDups; i++ {
		c.DuplicateTSNs = append(c.DuplicateTSNs, binary.BigEndian.Uint32(body[offset:]))
		offset += 4
	}

	return nil
}

// String makes SackChunk printable for packet traces.
func (c *SackChunk) String() string {
	return fmt.Sprintf("SACK cum=%d arwnd=%d gaps=%d dups=%d",
		c.CumulativeTSNAck, c.ARwnd, len(c.GapAckBlocks), len(c.DuplicateTSNs))
}

// gapAckBlocksFrom coalesces a set of out-of-order TSNs beyond the
// cumulative ack point into sorted gap-ack blocks with offsets
// relative to cumTSN.
func gapAckBlocksFrom(cumTSN uint32, received map[uint32]struct{}) []GapAckBlock {
	if len(received) == 0 {
		return nil
	}

	offsets := make([]uint32, 0, len(received))
	for tsn := range received {
		offsets = append(offsets, tsn-cumTSN)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	// A block offset is a 16-bit field; TSNs further than 65535 beyond
	// the cumulative point cannot be advertised and wait for the
	// cumulative point to advance.
	cut := sort.Search(len(offsets), func(i int) bool { return offsets[i] > math.MaxUint16 })
	offsets = offsets[:cut]
	if len(offsets) == 0 {
		return nil
	}

	var blocks []GapAckBlock
	start := offsets[0]
	end := offsets[0]
	for _, off := range offsets[1:] {
		if off == end+1 {
			end = off
			continue
		}
		blocks = append(blocks, GapAckBlock{Start: uint16(start), End: uint16(end)})
		start, end = off, off
	}
	blocks = append(blocks, GapAckBlock{Start: uint16(start), End: uint16(end)})

	return blocks
}
