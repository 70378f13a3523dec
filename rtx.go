package sctp

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RtxTimerState tracks the lifecycle of a retransmission timer.
type RtxTimerState int

const (
	// RtxStopped means the timer is not armed. A stopped timer never expires.
	RtxStopped RtxTimerState = iota
	// RtxRunning means the timer is armed and counting toward its RTO.
	RtxRunning
	// RtxClosed is terminal: the retransmission limit was reached and
	// the caller must tear down the association.
	RtxClosed
)

// String returns a human-readable name for the timer state.
func (s RtxTimerState) String() string {
	switch s {
	case RtxStopped:
		return "stopped"
	case RtxRunning:
		return "running"
	case RtxClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

const (
	// DefaultRTO is the retransmission timeout before any RTT sample
	// has been taken.
	DefaultRTO = 1 * time.Second

	// MinRTO floors the computed RTO so noisy low RTT samples cannot
	// collapse it toward zero.
	MinRTO = 100 * time.Millisecond

	// MaxRTO caps exponential backoff per RFC 6298.
	MaxRTO = 60 * time.Second

	// DefaultMaxRetransmits is the consecutive-timeout limit when the
	// caller does not supply one.
	DefaultMaxRetransmits = 5
)

// RtxTimer is the adaptive retransmission timer: an RFC 6298
// (Jacobson/Karels) RTT estimator plus exponential backoff and a
// consecutive-timeout abort limit.
//
// The timer is pollable, not callback-driven: callers periodically
// check IsExpired against wall-clock time and invoke HandleTimeout
// when it reports true. Nothing here blocks or schedules.
type RtxTimer struct {
	rto    time.Duration
	srtt   time.Duration
	rttVar time.Duration

	// hasSample distinguishes "no measurement yet" from a genuine
	// zero-duration SRTT.
	hasSample bool

	state          RtxTimerState
	nRTOs          int
	maxRetransmits int
	startTime      time.Time
}

// NewRtxTimer creates a stopped timer with the default initial RTO.
// A non-positive maxRetransmits selects DefaultMaxRetransmits.
func NewRtxTimer(maxRetransmits int) *RtxTimer {
	if maxRetransmits <= 0 {
		maxRetransmits = DefaultMaxRetransmits
	}
	return &RtxTimer{
		rto:            DefaultRTO,
		state:          RtxStopped,
		maxRetransmits: maxRetransmits,
	}
}

// Start arms the timer against the current wall clock. Starting a
// closed timer is a no-op; the closed state is terminal.
func (t *RtxTimer) Start() {
	if t.state == RtxClosed {
		return
	}
	t.state = RtxRunning
	t.startTime = time.Now()

	log.Trace().
		Dur("rto", t.rto).
		Msg("rtx timer started")
}

// Stop disarms the timer. A stopped timer never reports expiry.
func (t *RtxTimer) Stop() {
	if t.state == RtxClosed {
		return
	}
	t.state = RtxStopped
	t.startTime = time.Time{}
}

// UpdateRTO feeds a fresh RTT measurement into the estimator.
//
// First sample: SRTT = R, RTTVAR = R/2, RTO = SRTT + 4*RTTVAR.
// Subsequent samples use the RFC 6298 weights (alpha = 1/8 for SRTT,
// beta = 1/4 for RTTVAR). The resulting RTO is clamped to
// [MinRTO, MaxRTO]. A successful measurement resets the
// consecutive-timeout count.
func (t *RtxTimer) UpdateRTO(measured time.Duration) {
	if !t.hasSample {
		t.srtt = measured
		t.rttVar = measured / 2
		t.hasSample = true

		log.Debug().
			Dur("rtt", measured).
			Dur("srtt", t.srtt).
			Dur("rttVar", t.rttVar).
			Msg("first RTT measurement")
	} else {
		const alpha = 0.125 // 1/8
		const beta = 0.25   // 1/4

		diff := t.srtt - measured
		if diff < 0 {
			diff = -diff
		}

		t.rttVar = time.Duration((1-beta)*float64(t.rttVar) + beta*float64(diff))
		t.srtt = time.Duration((1-alpha)*float64(t.srtt) + alpha*float64(measured))

		log.Debug().
			Dur("rtt", measured).
			Dur("srtt", t.srtt).
			Dur("rttVar", t.rttVar).
			Msg("updated RTT estimate")
	}

	t.rto = t.srtt + 4*t.rttVar
	if t.rto < MinRTO {
		t.rto = MinRTO
	}
	if t.rto > MaxRTO {
		t.rto = MaxRTO
	}
	t.nRTOs = 0
}

// HandleTimeout records a retransmission timeout. It returns true when
// the caller should retransmit; once consecutive timeouts exceed the
// limit, the timer transitions to RtxClosed and returns false — the
// caller must abort the association instead of retransmitting.
func (t *RtxTimer) HandleTimeout() bool {
	t.nRTOs++

	if t.nRTOs > t.maxRetransmits {
		t.state = RtxClosed
		t.startTime = time.Time{}

		log.Warn().
			Int("timeouts", t.nRTOs).
			Int("max", t.maxRetransmits).
			Msg("retransmission limit reached, timer closed")
		return false
	}

	oldRTO := t.rto
	t.rto *= 2
	if t.rto > MaxRTO {
		t.rto = MaxRTO
	}
	t.startTime = time.Now()

	log.Debug().
		Dur("oldRTO", oldRTO).
		Dur("newRTO", t.rto).
		Int("timeouts", t.nRTOs).
		Msg("timeout backoff applied")

	return true
}

// IsExpired reports whether the armed timer has run past its RTO.
// Stopped and closed timers are never expired.
func (t *RtxTimer) IsExpired() bool {
	return t.state == RtxRunning && time.Since(t.startTime) >= t.rto
}

// State returns the timer's lifecycle state.
func (t *RtxTimer) State() RtxTimerState { return t.state }

// RTO returns the current retransmission timeout.
func (t *RtxTimer) RTO() time.Duration { return t.rto }

// SRTT returns the smoothed RTT estimate; ok is false before the
// first measurement.
func (t *RtxTimer) SRTT() (srtt time.Duration, ok bool) {
	return t.srtt, t.hasSample
}

// RTTVar returns the RTT variance estimate; ok is false before the
// first measurement.
func (t *RtxTimer) RTTVar() (rttVar time.Duration, ok bool) {
	return t.rttVar, t.hasSample
}

// Status renders a one-line summary for diagnostics, e.g.
// "RTO=1s SRTT=- nRTOs=0 stopped".
func (t *RtxTimer) Status() string {
	srtt := "-"
	if t.hasSample {
		srtt = t.srtt.String()
	}
	return fmt.Sprintf("RTO=%s SRTT=%s nRTOs=%d %s", t.rto, srtt, t.nRTOs, t.state)
}
