package sctp

import (
	"github.com/rs/zerolog/log"
)

// maxPayloadSize is the per-chunk payload budget derived from the MTU:
// common header + chunk header + DATA fixed body are subtracted.
func (a *Association) maxPayloadSize() int {
	size := int(a.config.MTU) - commonHeaderSize - chunkHeaderSize - dataChunkFixedSize
	if size < 1 {
		size = 1
	}
	return size
}

// fragmentPayload splits payload into maxSize pieces. An empty payload
// still yields one (empty) part so that zero-length messages produce a
// single chunk with both fragment flags set.
func fragmentPayload(payload []byte, maxSize int) [][]byte {
	if len(payload) <= maxSize {
		return [][]byte{payload}
	}

	var parts [][]byte
	for offset := 0; offset < len(payload); offset += maxSize {
		end := offset + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		parts = append(parts, payload[offset:end])
	}
	return parts
}

// pendingFragment is one buffered piece of an in-progress fragment run.
type pendingFragment struct {
	payload []byte
	begin   bool
	end     bool
}

// reassembler rebuilds user messages from DATA fragment runs. Fragments
// of one message carry consecutive TSNs with the begin flag on the
// first chunk and the end flag on the last. Arrival order is not
// guaranteed (the association accepts out-of-order TSNs), so pieces are
// buffered keyed by TSN and a run completes only once every TSN from
// the begin chunk through the end chunk is present. This subset assumes
// at most one partial message per stream at a time.
type reassembler struct {
	pending map[uint16]map[uint32]pendingFragment
}

func newReassembler() *reassembler {
	return &reassembler{pending: make(map[uint16]map[uint32]pendingFragment)}
}

// push absorbs one DATA chunk. For an unfragmented chunk the payload is
// returned immediately; fragments are buffered until the run is
// contiguous from begin to end, at which point the concatenated message
// is returned with complete=true.
func (r *reassembler) push(d *DataChunk) (payload []byte, complete bool) {
	if d.BeginFragment && d.EndFragment {
		return d.Payload, true
	}

	frags := r.pending[d.StreamID]
	if frags == nil {
		frags = make(map[uint32]pendingFragment)
		r.pending[d.StreamID] = frags
	}
	frags[d.TSN] = pendingFragment{payload: d.Payload, begin: d.BeginFragment, end: d.EndFragment}

	return r.assemble(d.StreamID, frags)
}

// assemble checks whether the stream's buffered fragments form a
// contiguous run from the begin chunk to the end chunk and, if so,
// concatenates and releases them.
func (r *reassembler) assemble(streamID uint16, frags map[uint32]pendingFragment) (payload []byte, complete bool) {
	var start uint32
	found := false
	for tsn, f := range frags {
		if f.begin {
			start, found = tsn, true
			break
		}
	}
	if !found {
		// No begin yet; hold what arrived.
		return nil, false
	}

	total := 0
	end := start
	for tsn := start; ; tsn++ {
		f, ok := frags[tsn]
		if !ok {
			// A hole in the run; wait for the missing TSN.
			return nil, false
		}
		total += len(f.payload)
		if f.end {
			end = tsn
			break
		}
	}

	payload = make([]byte, 0, total)
	for tsn := start; ; tsn++ {
		payload = append(payload, frags[tsn].payload...)
		delete(frags, tsn)
		if tsn == end {
			break
		}
	}
	if len(frags) == 0 {
		delete(r.pending, streamID)
	}

	log.Debug().
		Uint16("stream", streamID).
		Uint32("startTSN", start).
		Uint32("endTSN", end).
		Int("bytes", total).
		Msg("message reassembled")

	return payload, true
}
