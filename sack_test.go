package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSackGapSemantics verifies gap-ack blocks decode exactly as
// encoded, offsets relative to the cumulative TSN, order preserved.
func TestSackGapSemantics(t *testing.T) {
	chunk := &SackChunk{
		CumulativeTSNAck: 1000,
		ARwnd:            65536,
		GapAckBlocks: []GapAckBlock{
			{Start: 2, End: 3},
			{Start: 5, End: 8},
		},
	}

	raw, err := chunk.Marshal()
	require.NoError(t, err)

	decoded, _, err := decodeChunk(raw)
	require.NoError(t, err)

	got, ok := decoded.(*SackChunk)
	require.True(t, ok)
	assert.Equal(t, uint32(1000), got.CumulativeTSNAck)
	require.Len(t, got.GapAckBlocks, 2)
	assert.Equal(t, GapAckBlock{Start: 2, End: 3}, got.GapAckBlocks[0])
	assert.Equal(t, GapAckBlock{Start: 5, End: 8}, got.GapAckBlocks[1])
	assert.Empty(t, got.DuplicateTSNs)
}

// TestSackRoundtrip verifies boundary cases: empty lists, single-TSN
// gap runs, and duplicate TSN lists.
func TestSackRoundtrip(t *testing.T) {
	tests := []struct {
		name  string
		chunk *SackChunk
	}{
		{
			name:  "no gaps no duplicates",
			chunk: &SackChunk{CumulativeTSNAck: 42, ARwnd: 1500},
		},
		{
			name: "single-TSN gap run",
			chunk: &SackChunk{
				CumulativeTSNAck: 7,
				ARwnd:            65536,
				GapAckBlocks:     []GapAckBlock{{Start: 2, End: 2}},
			},
		},
		{
			name: "duplicates only",
			chunk: &SackChunk{
				CumulativeTSNAck: 100,
				ARwnd:            4096,
				DuplicateTSNs:    []uint32{55, 56, 55},
			},
		},
		{
			name: "gaps and duplicates",
			chunk: &SackChunk{
				CumulativeTSNAck: 0xFFFFFFF0,
				ARwnd:            65536,
				GapAckBlocks:     []GapAckBlock{{Start: 1, End: 1}, {Start: 4, End: 9}},
				DuplicateTSNs:    []uint32{0xFFFFFFEE},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.chunk.Marshal()
			require.NoError(t, err)

			decoded, _, err := decodeChunk(raw)
			require.NoError(t, err)

			got, ok := decoded.(*SackChunk)
			require.True(t, ok)
			assert.Equal(t, tt.chunk.CumulativeTSNAck, got.CumulativeTSNAck)
			assert.Equal(t, tt.chunk.ARwnd, got.ARwnd)
			if len(tt.chunk.GapAckBlocks) == 0 {
				assert.Empty(t, got.GapAckBlocks)
			} else {
				assert.Equal(t, tt.chunk.GapAckBlocks, got.GapAckBlocks)
			}
			if len(tt.chunk.DuplicateTSNs) == 0 {
				assert.Empty(t, got.DuplicateTSNs)
			} else {
				assert.Equal(t, tt.chunk.DuplicateTSNs, got.DuplicateTSNs)
			}
		})
	}
}

// TestSackTruncatedBody verifies a body shorter than its advertised
// gap/duplicate counts is a decode error.
func TestSackTruncatedBody(t *testing.T) {
	chunk := &SackChunk{
		CumulativeTSNAck: 10,
		ARwnd:            100,
		GapAckBlocks:     []GapAckBlock{{Start: 1, End: 2}},
	}
	raw, err := chunk.Marshal()
	require.NoError(t, err)

	// Chop the gap block off but keep the counts.
	truncated := raw[:len(raw)-4]
	// Fix the header length so the chunk frames correctly.
	truncated[2] = 0
	truncated[3] = byte(chunkHeaderSize + sackChunkFixedSize)

	_, _, err = decodeChunk(truncated)
	assert.Error(t, err)
}

// TestGapAckBlocksFrom verifies out-of-order TSN sets coalesce into
// sorted, contiguous blocks relative to the cumulative point.
func TestGapAckBlocksFrom(t *testing.T) {
	tests := []struct {
		name     string
		cum      uint32
		received []uint32
		want     []GapAckBlock
	}{
		{
			name: "empty set",
			cum:  1000,
			want: nil,
		},
		{
			name:     "two runs",
			cum:      1000,
			received: []uint32{1002, 1003, 1005, 1006, 1007, 1008},
			want:     []GapAckBlock{{Start: 2, End: 3}, {Start: 5, End: 8}},
		},
		{
			name:     "single TSN",
			cum:      50,
			received: []uint32{52},
			want:     []GapAckBlock{{Start: 2, End: 2}},
		},
		{
			name:     "unsorted input",
			cum:      10,
			received: []uint32{15, 12, 13},
			want:     []GapAckBlock{{Start: 2, End: 3}, {Start: 5, End: 5}},
		},
		{
			name:     "offset at the 16-bit boundary",
			cum:      1000,
			received: []uint32{1000 + 65535},
			want:     []GapAckBlock{{Start: 65535, End: 65535}},
		},
		{
			name:     "far TSN beyond the representable range is withheld",
			cum:      1000,
			received: []uint32{1002, 1003, 1000 + 70000},
			want:     []GapAckBlock{{Start: 2, End: 3}},
		},
		{
			name:     "only far TSNs yields no blocks",
			cum:      1000,
			received: []uint32{1000 + 70000, 1000 + 70001},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := make(map[uint32]struct{}, len(tt.received))
			for _, tsn := range tt.received {
				set[tsn] = struct{}{}
			}
			assert.Equal(t, tt.want, gapAckBlocksFrom(tt.cum, set))
		})
	}
}
