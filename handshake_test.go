package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPair creates two associations wired to each other's ports:
// a (initiator, 5000 -> 5001) and b (responder, 5001 -> 5000).
func newTestPair(t *testing.T) (*Association, *Association) {
	t.Helper()

	cfgA := DefaultConfig()
	cfgA.LocalPort = 5000
	cfgA.RemotePort = 5001

	cfgB := DefaultConfig()
	cfgB.LocalPort = 5001
	cfgB.RemotePort = 5000

	a, err := NewAssociation(cfgA)
	require.NoError(t, err)
	b, err := NewAssociation(cfgB)
	require.NoError(t, err)

	return a, b
}

// establish runs the full four-way handshake between the pair through
// encode/decode round trips.
func establish(t *testing.T, a, b *Association) {
	t.Helper()

	initChunk, err := a.StartHandshake()
	require.NoError(t, err)

	raw, err := a.BuildPacket(initChunk)
	require.NoError(t, err)
	_, replies, err := b.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	raw, err = b.BuildPacket(replies...)
	require.NoError(t, err)
	_, replies, err = a.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	raw, err = a.BuildPacket(replies...)
	require.NoError(t, err)
	_, replies, err = b.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	raw, err = b.BuildPacket(replies...)
	require.NoError(t, err)
	_, replies, err = a.HandlePacket(raw)
	require.NoError(t, err)
	require.Empty(t, replies)

	require.True(t, a.IsEstablished())
	require.True(t, b.IsEstablished())
}

// TestHandshakeEndToEnd verifies the INIT -> INIT_ACK -> COOKIE_ECHO
// -> COOKIE_ACK exchange entirely through encode/decode round trips,
// with the state cookie 32 bytes at every hop.
func TestHandshakeEndToEnd(t *testing.T) {
	a, b := newTestPair(t)

	// INIT
	initChunk, err := a.StartHandshake()
	require.NoError(t, err)
	assert.Equal(t, StateCookieWait, a.State())
	assert.NotZero(t, initChunk.InitiateTag)

	raw, err := a.BuildPacket(initChunk)
	require.NoError(t, err)

	// INIT_ACK
	_, replies, err := b.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	initAck, ok := replies[0].(*InitAckChunk)
	require.True(t, ok)
	assert.Len(t, initAck.StateCookie, 32, "cookie is 32 bytes leaving the responder")
	assert.Equal(t, StateClosed, b.State(), "responder commits nothing before COOKIE_ECHO")

	raw, err = b.BuildPacket(initAck)
	require.NoError(t, err)

	// COOKIE_ECHO
	_, replies, err = a.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	echo, ok := replies[0].(*CookieEchoChunk)
	require.True(t, ok)
	assert.Len(t, echo.Cookie, 32, "cookie is 32 bytes echoed back")
	assert.Equal(t, StateCookieEchoed, a.State())

	raw, err = a.BuildPacket(echo)
	require.NoError(t, err)

	// COOKIE_ACK
	_, replies, err = b.HandlePacket(raw)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	_, ok = replies[0].(*CookieAckChunk)
	require.True(t, ok)
	assert.True(t, b.IsEstablished())

	raw, err = b.BuildPacket(replies...)
	require.NoError(t, err)

	_, replies, err = a.HandlePacket(raw)
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.True(t, a.IsEstablished())
}

// TestHandshakeCookieMismatch verifies a forged cookie is rejected by
// its creator.
func TestHandshakeCookieMismatch(t *testing.T) {
	a, b := newTestPair(t)

	initChunk, err := a.StartHandshake()
	require.NoError(t, err)
	_, err = b.HandleInit(initChunk)
	require.NoError(t, err)

	forged := make([]byte, StateCookieSize)
	_, err = b.HandleCookieEcho(&CookieEchoChunk{Cookie: forged})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCookie)
	assert.Equal(t, StateClosed, b.State())
}

// TestHandshakeCookieLength verifies the 32-byte size contract is
// enforced on both sides.
func TestHandshakeCookieLength(t *testing.T) {
	a, b := newTestPair(t)

	initChunk, err := a.StartHandshake()
	require.NoError(t, err)
	initAck, err := b.HandleInit(initChunk)
	require.NoError(t, err)

	short := &InitAckChunk{
		InitiateTag: initAck.InitiateTag,
		InitialTSN:  initAck.InitialTSN,
		StateCookie: initAck.StateCookie[:16],
	}
	_, err = a.HandleInitAck(short)
	assert.ErrorIs(t, err, ErrInvalidCookie)

	_, err = b.HandleCookieEcho(&CookieEchoChunk{Cookie: []byte("short")})
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

// TestHandshakeOutOfOrderChunks verifies protocol-state errors for
// chunks arriving in the wrong state.
func TestHandshakeOutOfOrderChunks(t *testing.T) {
	a, _ := newTestPair(t)

	// COOKIE_ACK before anything else.
	err := a.HandleCookieAck(&CookieAckChunk{})
	assert.Error(t, err)

	// INIT_ACK without a prior INIT of ours.
	_, err = a.HandleInitAck(&InitAckChunk{InitiateTag: 1, StateCookie: make([]byte, StateCookieSize)})
	assert.Error(t, err)

	// Double start.
	_, err = a.StartHandshake()
	require.NoError(t, err)
	_, err = a.StartHandshake()
	assert.Error(t, err)
}

// TestGenerateStateCookie verifies the cookie binds every input and is
// always 32 bytes.
func TestGenerateStateCookie(t *testing.T) {
	base := GenerateStateCookie(1, 2, 3, 4)
	assert.Len(t, base, StateCookieSize)

	assert.Equal(t, base, GenerateStateCookie(1, 2, 3, 4), "deterministic")
	assert.NotEqual(t, base, GenerateStateCookie(9, 2, 3, 4), "peer tag bound")
	assert.NotEqual(t, base, GenerateStateCookie(1, 9, 3, 4), "peer TSN bound")
	assert.NotEqual(t, base, GenerateStateCookie(1, 2, 9, 4), "local tag bound")
	assert.NotEqual(t, base, GenerateStateCookie(1, 2, 3, 9), "local TSN bound")
}

// TestValidateStateCookie verifies the size and equality checks.
func TestValidateStateCookie(t *testing.T) {
	cookie := GenerateStateCookie(1, 2, 3, 4)

	assert.NoError(t, ValidateStateCookie(cookie, cookie))
	assert.ErrorIs(t, ValidateStateCookie(cookie[:31], cookie), ErrInvalidCookie)
	assert.ErrorIs(t, ValidateStateCookie(GenerateStateCookie(4, 3, 2, 1), cookie), ErrInvalidCookie)
}
