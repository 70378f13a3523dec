package sctp

// CookieEchoChunk echoes the state cookie from INIT_ACK back to its
// creator. The cookie is opaque to the echoing side: it is carried
// verbatim and never reinterpreted here.
type CookieEchoChunk struct {
	Cookie []byte
}

// Type returns ChunkTypeCookieEcho.
func (c *CookieEchoChunk) Type() ChunkType { return ChunkTypeCookieEcho }

// Marshal serializes the COOKIE_ECHO chunk: header plus the raw cookie
// bytes, length-prefixed by the chunk header.
func (c *CookieEchoChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkTypeCookieEcho, 0, c.Cookie), nil
}

// unmarshalBody copies the cookie bytes unchanged.
func (c *CookieEchoChunk) unmarshalBody(body []byte) error {
	c.Cookie = make([]byte, len(body))
	copy(c.Cookie, body)
	return nil
}

// CookieAckChunk completes the four-way handshake. It is a fixed
// 4-byte chunk: header only, no body.
type CookieAckChunk struct{}

// Type returns ChunkTypeCookieAck.
func (c *CookieAckChunk) Type() ChunkType { return ChunkTypeCookieAck }

// Marshal serializes the header-only COOKIE_ACK chunk.
func (c *CookieAckChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkTypeCookieAck, 0, nil), nil
}
