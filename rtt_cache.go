package sctp

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RTT cache implements RFC 2140-style control-block sharing: SRTT and
// RTTVAR estimates from a finished association seed the retransmission
// timer of the next association to the same peer, so reconnects skip
// the conservative initial RTO.

// RTTCacheConfig controls cache behavior. Cached values are dampened
// before being applied so a stale estimate cannot make a fresh timer
// overconfident.
type RTTCacheConfig struct {
	// Dampening multiplies cached SRTT/RTTVAR when seeding (0.0-1.0
	// meaning full trust; values above 1.0 inflate the estimate).
	Dampening float64

	// EntryTTL is how long an entry stays usable after its last update.
	EntryTTL time.Duration
}

// DefaultRTTCacheConfig returns the defaults: 25% inflation and a
// five-minute TTL.
func DefaultRTTCacheConfig() RTTCacheConfig {
	return RTTCacheConfig{
		Dampening: 1.25,
		EntryTTL:  5 * time.Minute,
	}
}

type rttCacheEntry struct {
	srtt      time.Duration
	rttVar    time.Duration
	updatedAt time.Time
}

// RTTCache stores per-peer RTT estimates keyed by remote port. Safe
// for concurrent use.
type RTTCache struct {
	mu      sync.Mutex
	config  RTTCacheConfig
	entries map[uint16]*rttCacheEntry
}

// NewRTTCache creates an empty cache.
func NewRTTCache(config RTTCacheConfig) *RTTCache {
	if config.Dampening <= 0 {
		config.Dampening = DefaultRTTCacheConfig().Dampening
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = DefaultRTTCacheConfig().EntryTTL
	}
	return &RTTCache{
		config:  config,
		entries: make(map[uint16]*rttCacheEntry),
	}
}

// Store banks the estimates measured against a peer.
func (c *RTTCache) Store(remotePort uint16, srtt, rttVar time.Duration) {
	if srtt <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[remotePort] = &rttCacheEntry{
		srtt:      srtt,
		rttVar:    rttVar,
		updatedAt: time.Now(),
	}

	log.Debug().
		Uint16("remotePort", remotePort).
		Dur("srtt", srtt).
		Dur("rttVar", rttVar).
		Msg("cached RTT estimates")
}

// Seed applies a cached, dampened estimate to a fresh timer and
// reports whether one was available. Expired entries are dropped on
// the way out.
func (c *RTTCache) Seed(t *RtxTimer, remotePort uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[remotePort]
	if !ok {
		return false
	}
	if time.Since(entry.updatedAt) > c.config.EntryTTL {
		delete(c.entries, remotePort)
		return false
	}

	srtt := time.Duration(float64(entry.srtt) * c.config.Dampening)
	rttVar := time.Duration(float64(entry.rttVar) * c.config.Dampening)

	t.srtt = srtt
	t.rttVar = rttVar
	t.hasSample = true
	t.rto = srtt + 4*rttVar
	if t.rto < MinRTO {
		t.rto = MinRTO
	}
	if t.rto > MaxRTO {
		t.rto = MaxRTO
	}

	log.Debug().
		Uint16("remotePort", remotePort).
		Dur("seededRTO", t.rto).
		Msg("seeded timer from RTT cache")

	return true
}

// Len returns the number of live entries (expired ones included until
// their next Seed attempt).
func (c *RTTCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
