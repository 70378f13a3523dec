package sctp

import (
	"github.com/rs/zerolog/log"
)

// streamLimits holds the stream counts in force for an association.
// Before negotiation the local configuration caps apply; once the
// peer's INIT or INIT_ACK arrives, each direction is capped to the
// pairwise minimum of what the two sides offered (RFC 4960 section
// 5.1.1).
//
// Stream identifiers are zero-based, so a limit of N admits ids
// 0..N-1.
type streamLimits struct {
	// maxOutbound bounds the stream ids this side may open for sending.
	maxOutbound uint16

	// maxInbound bounds the stream ids the peer may address in DATA.
	maxInbound uint16
}

func newStreamLimits(cfg Config) streamLimits {
	return streamLimits{
		maxOutbound: cfg.NumOutboundStreams,
		maxInbound:  cfg.NumInboundStreams,
	}
}

// negotiate caps both directions against the peer's advertisement:
// this side cannot send on more streams than the peer is willing to
// receive, and vice versa.
func (l *streamLimits) negotiate(peerOutbound, peerInbound uint16) {
	l.maxOutbound = min16(l.maxOutbound, peerInbound)
	l.maxInbound = min16(l.maxInbound, peerOutbound)

	log.Debug().
		Uint16("maxOutbound", l.maxOutbound).
		Uint16("maxInbound", l.maxInbound).
		Msg("stream limits negotiated")
}

func (l streamLimits) allowsOutbound(id uint16) bool { return id < l.maxOutbound }

func (l streamLimits) allowsInbound(id uint16) bool { return id < l.maxInbound }

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}
