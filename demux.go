package sctp

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// assocKey identifies an association by its port pair as seen from the
// local side.
type assocKey struct {
	localPort  uint16
	remotePort uint16
}

// Demux routes raw inbound byte buffers from the session layer to the
// owning association by port pair. It is the only piece of this
// package shared across logical flows, so it carries its own lock;
// the associations it hands back must still be driven by their own
// single flow each.
//
// Why a demux is needed:
//   - One decrypted byte stream can interleave traffic for many
//     associations
//   - The session layer knows nothing about SCTP semantics; routing by
//     port pair has to happen somewhere transport-agnostic
//   - Expired retransmission timers need one place to poll
type Demux struct {
	mu     sync.Mutex
	assocs map[assocKey]*Association

	// rttCache warms the RTO of new associations to recently seen
	// peers.
	rttCache *RTTCache
}

// NewDemux creates an empty demultiplexer.
func NewDemux() *Demux {
	return &Demux{
		assocs:   make(map[assocKey]*Association),
		rttCache: NewRTTCache(DefaultRTTCacheConfig()),
	}
}

// Register adds an association keyed by its configured port pair and
// seeds its retransmission timer from the RTT cache when a recent
// entry for the peer exists.
func (d *Demux) Register(a *Association) error {
	key := assocKey{localPort: a.Config().LocalPort, remotePort: a.Config().RemotePort}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.assocs[key]; exists {
		return fmt.Errorf("association for ports %d/%d already registered", key.localPort, key.remotePort)
	}
	d.assocs[key] = a
	d.rttCache.Seed(a.RtxTimer(), key.remotePort)

	log.Debug().
		Uint16("localPort", key.localPort).
		Uint16("remotePort", key.remotePort).
		Msg("association registered")

	return nil
}

// Unregister removes an association and banks its RTT estimates for
// future connections to the same peer.
func (d *Demux) Unregister(localPort, remotePort uint16) {
	key := assocKey{localPort: localPort, remotePort: remotePort}

	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.assocs[key]
	if !ok {
		return
	}
	if srtt, has := a.RtxTimer().SRTT(); has {
		rttVar, _ := a.RtxTimer().RTTVar()
		d.rttCache.Store(remotePort, srtt, rttVar)
	}
	delete(d.assocs, key)

	log.Debug().
		Uint16("localPort", localPort).
		Uint16("remotePort", remotePort).
		Msg("association unregistered")
}

// Lookup returns the association for a port pair.
func (d *Demux) Lookup(localPort, remotePort uint16) (*Association, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.assocs[assocKey{localPort: localPort, remotePort: remotePort}]
	return a, ok
}

// Route delivers a raw inbound buffer to the owning association. The
// buffer is pre-filtered with IsSCTPData, then the common header is
// peeked for the port pair (destination port is the local side). The
// packet's messages and response chunks are returned alongside the
// association so the caller can transmit the replies.
func (d *Demux) Route(raw []byte) (*Association, []InboundMessage, []Chunk, error) {
	if !IsSCTPData(raw) {
		return nil, nil, nil, fmt.Errorf("buffer of %d bytes is not SCTP traffic", len(raw))
	}

	// Peek ports without a full decode: source port then destination
	// port lead the common header.
	remotePort := binary.BigEndian.Uint16(raw[0:])
	localPort := binary.BigEndian.Uint16(raw[2:])

	a, ok := d.Lookup(localPort, remotePort)
	if !ok {
		log.Debug().
			Uint16("localPort", localPort).
			Uint16("remotePort", remotePort).
			Msg("no association for inbound packet")
		return nil, nil, nil, fmt.Errorf("no association for ports %d/%d", localPort, remotePort)
	}

	msgs, replies, err := a.HandlePacket(raw)
	if err != nil {
		return a, msgs, replies, fmt.Errorf("route to ports %d/%d: %w", localPort, remotePort, err)
	}
	return a, msgs, replies, nil
}

// Expired returns every registered association whose retransmission
// timer has run past its RTO. Callers poll this on every event-loop
// tick and apply HandleRtxTimeout (or Abort) per association.
func (d *Demux) Expired() []*Association {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*Association
	for _, a := range d.assocs {
		if a.RtxTimer().IsExpired() {
			out = append(out, a)
		}
	}
	return out
}
