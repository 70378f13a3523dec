package sctp

// HeartbeatChunk probes peer reachability. This subset carries no
// heartbeat info parameter: the chunk is header-only, and receipt is
// recorded as liveness by the association.
type HeartbeatChunk struct{}

// Type returns ChunkTypeHeartbeat.
func (c *HeartbeatChunk) Type() ChunkType { return ChunkTypeHeartbeat }

// Marshal serializes the header-only HEARTBEAT chunk.
func (c *HeartbeatChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkTypeHeartbeat, 0, nil), nil
}

// ShutdownChunk initiates graceful association teardown. This subset
// omits the RFC's cumulative-TSN field: outstanding data is the
// caller's responsibility to drain before shutting down, so the chunk
// is header-only.
type ShutdownChunk struct{}

// Type returns ChunkTypeShutdown.
func (c *ShutdownChunk) Type() ChunkType { return ChunkTypeShutdown }

// Marshal serializes the header-only SHUTDOWN chunk.
func (c *ShutdownChunk) Marshal() ([]byte, error) {
	return marshalChunk(ChunkTypeShutdown, 0, nil), nil
}
