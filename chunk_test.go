package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDataChunkRoundtrip verifies every DATA field survives
// encode/decode byte-exact, including boundary payloads.
func TestDataChunkRoundtrip(t *testing.T) {
	tests := []struct {
		name  string
		chunk *DataChunk
	}{
		{
			name: "whole message",
			chunk: &DataChunk{
				BeginFragment: true,
				EndFragment:   true,
				TSN:           0xCAFEBABE,
				StreamID:      7,
				StreamSeq:     41,
				PPID:          PPIDWebRTCString,
				Payload:       []byte("hello agents"),
			},
		},
		{
			name: "unordered with immediate flag",
			chunk: &DataChunk{
				BeginFragment: true,
				EndFragment:   true,
				Unordered:     true,
				Immediate:     true,
				TSN:           1,
				StreamID:      0,
				StreamSeq:     0,
				PPID:          PPIDWebRTCBinary,
				Payload:       []byte{0x00, 0xFF, 0x00, 0x7F},
			},
		},
		{
			name: "middle fragment",
			chunk: &DataChunk{
				TSN:       1000,
				StreamID:  3,
				StreamSeq: 5,
				PPID:      PPIDWebRTCBinary,
				Payload:   []byte{1, 2, 3},
			},
		},
		{
			name: "zero-length payload",
			chunk: &DataChunk{
				BeginFragment: true,
				EndFragment:   true,
				TSN:           2,
				StreamID:      1,
				StreamSeq:     0,
				PPID:          PPIDWebRTCStringEmpty,
			},
		},
		{
			name: "large binary payload",
			chunk: &DataChunk{
				BeginFragment: true,
				EndFragment:   true,
				TSN:           0xFFFFFFFF,
				StreamID:      0xFFFF,
				StreamSeq:     0xFFFF,
				PPID:          PPIDWebRTCBinary,
				Payload:       make([]byte, 4096),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.chunk.Marshal()
			require.NoError(t, err)
			assert.Zero(t, len(raw)%4, "chunk must be padded to a 4-byte boundary")

			decoded, consumed, err := decodeChunk(raw)
			require.NoError(t, err)
			assert.Equal(t, len(raw), consumed)

			got, ok := decoded.(*DataChunk)
			require.True(t, ok, "expected DataChunk, got %T", decoded)

			assert.Equal(t, tt.chunk.BeginFragment, got.BeginFragment)
			assert.Equal(t, tt.chunk.EndFragment, got.EndFragment)
			assert.Equal(t, tt.chunk.Unordered, got.Unordered)
			assert.Equal(t, tt.chunk.Immediate, got.Immediate)
			assert.Equal(t, tt.chunk.TSN, got.TSN)
			assert.Equal(t, tt.chunk.StreamID, got.StreamID)
			assert.Equal(t, tt.chunk.StreamSeq, got.StreamSeq)
			assert.Equal(t, tt.chunk.PPID, got.PPID)
			if len(tt.chunk.Payload) == 0 {
				assert.Empty(t, got.Payload)
			} else {
				assert.Equal(t, tt.chunk.Payload, got.Payload, "payload must be preserved verbatim")
			}
		})
	}
}

// TestInitChunkRoundtrip verifies the fixed INIT body and its exact
// 20-byte encoding.
func TestInitChunkRoundtrip(t *testing.T) {
	chunk := &InitChunk{
		InitiateTag:        0xDEADBEEF,
		ARwnd:              65536,
		NumOutboundStreams: 65535,
		NumInboundStreams:  65535,
		InitialTSN:         0x12345678,
	}

	raw, err := chunk.Marshal()
	require.NoError(t, err)
	assert.Equal(t, 20, len(raw), "bare INIT chunk encodes to exactly 20 bytes")
	assert.Equal(t, uint8(ChunkTypeInit), raw[0])

	decoded, _, err := decodeChunk(raw)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

// TestInitChunkRejectsZeroTag verifies the reserved initiate tag 0 is
// rejected at decode time with a descriptive error.
func TestInitChunkRejectsZeroTag(t *testing.T) {
	chunk := &InitChunk{
		InitiateTag: 0,
		ARwnd:       65536,
		InitialTSN:  1,
	}

	raw, err := chunk.Marshal()
	require.NoError(t, err, "marshal itself does not validate")

	_, _, err = decodeChunk(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroInitiateTag)
}

// TestInitAckChunkRoundtrip verifies the INIT_ACK fixed body plus the
// state cookie parameter.
func TestInitAckChunkRoundtrip(t *testing.T) {
	cookie := GenerateStateCookie(1, 2, 3, 4)
	chunk := &InitAckChunk{
		InitiateTag:        42,
		ARwnd:              8192,
		NumOutboundStreams: 10,
		NumInboundStreams:  20,
		InitialTSN:         99,
		StateCookie:        cookie,
	}

	raw, err := chunk.Marshal()
	require.NoError(t, err)

	decoded, _, err := decodeChunk(raw)
	require.NoError(t, err)

	got, ok := decoded.(*InitAckChunk)
	require.True(t, ok)
	assert.Equal(t, chunk.InitiateTag, got.InitiateTag)
	assert.Equal(t, chunk.ARwnd, got.ARwnd)
	assert.Equal(t, chunk.NumOutboundStreams, got.NumOutboundStreams)
	assert.Equal(t, chunk.NumInboundStreams, got.NumInboundStreams)
	assert.Equal(t, chunk.InitialTSN, got.InitialTSN)
	assert.Equal(t, cookie, got.StateCookie)
	assert.Len(t, got.StateCookie, StateCookieSize)
}

// TestInitAckChunkRejectsZeroTag verifies INIT_ACK shares the
// initiate-tag validation with INIT.
func TestInitAckChunkRejectsZeroTag(t *testing.T) {
	chunk := &InitAckChunk{InitiateTag: 0, StateCookie: make([]byte, StateCookieSize)}

	raw, err := chunk.Marshal()
	require.NoError(t, err)

	_, _, err = decodeChunk(raw)
	assert.ErrorIs(t, err, ErrZeroInitiateTag)
}

// TestCookieEchoRoundtrip verifies the cookie is carried verbatim,
// never reinterpreted.
func TestCookieEchoRoundtrip(t *testing.T) {
	cookie := GenerateStateCookie(0xAAAA, 0xBBBB, 0xCCCC, 0xDDDD)
	chunk := &CookieEchoChunk{Cookie: cookie}

	raw, err := chunk.Marshal()
	require.NoError(t, err)

	decoded, _, err := decodeChunk(raw)
	require.NoError(t, err)

	got, ok := decoded.(*CookieEchoChunk)
	require.True(t, ok)
	assert.Equal(t, cookie, got.Cookie)
}

// TestCookieAckRoundtrip verifies the header-only 4-byte COOKIE_ACK.
func TestCookieAckRoundtrip(t *testing.T) {
	raw, err := (&CookieAckChunk{}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, 4, len(raw), "COOKIE_ACK is exactly 4 bytes")

	decoded, _, err := decodeChunk(raw)
	require.NoError(t, err)
	assert.IsType(t, &CookieAckChunk{}, decoded)
}

// TestControlChunkRoundtrips verifies the header-only HEARTBEAT and
// SHUTDOWN chunks of this subset.
func TestControlChunkRoundtrips(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
	}{
		{"heartbeat", &HeartbeatChunk{}},
		{"shutdown", &ShutdownChunk{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.chunk.Marshal()
			require.NoError(t, err)
			assert.Equal(t, 4, len(raw))

			decoded, _, err := decodeChunk(raw)
			require.NoError(t, err)
			assert.IsType(t, tt.chunk, decoded)
		})
	}
}

// TestUnknownChunkDecode verifies unrecognized-but-well-framed type
// codes decode to UnknownChunk instead of failing the packet.
func TestUnknownChunkDecode(t *testing.T) {
	raw := marshalChunk(ChunkType(200), 0x05, []byte{1, 2, 3, 4, 5})

	decoded, consumed, err := decodeChunk(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), consumed)

	got, ok := decoded.(*UnknownChunk)
	require.True(t, ok)
	assert.Equal(t, uint8(200), got.Code)
	assert.Equal(t, uint8(0x05), got.Flags)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got.Value)

	reencoded, err := got.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, reencoded, "unknown chunks re-frame verbatim")
}

// TestChunkHeaderValidation verifies malformed chunk headers surface
// typed decode errors rather than panics.
func TestChunkHeaderValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty buffer", nil},
		{"short header", []byte{0, 0, 0}},
		{"length below header size", []byte{0, 0, 0, 2}},
		{"length beyond buffer", []byte{0, 0, 0, 64, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeChunk(tt.raw)
			assert.Error(t, err)
		})
	}
}
