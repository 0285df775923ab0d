package series

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
)

// Reducer gates chart redraws on data change, elapsed time and a skip ceiling.
type Reducer struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	maxSkips int

	lastFingerprint uint64
	lastRedraw      time.Time
	skips           int
	redraws         int
}

// NewReducer returns a reducer that redraws at most every interval unless maxSkips
// consecutive calls were refused.
func NewReducer(interval time.Duration, maxSkips int, clock clockwork.Clock) *Reducer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reducer{clock: clock, interval: interval, maxSkips: maxSkips}
}

// ShouldRedraw reports whether a renderer should redraw for the sample with fingerprint fp.
// A redraw happens when fp differs from the last drawn one and the interval has elapsed,
// or when maxSkips calls in a row have been refused.
func (r *Reducer) ShouldRedraw(fp uint64) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := fp != r.lastFingerprint || r.redraws == 0
	elapsed := r.lastRedraw.IsZero() || now.Sub(r.lastRedraw) >= r.interval
	forced := r.maxSkips > 0 && r.skips >= r.maxSkips

	if (changed && elapsed) || forced {
		r.lastFingerprint = fp
		r.lastRedraw = now
		r.skips = 0
		r.redraws++
		return true
	}
	r.skips++
	return false
}

// Stats returns the redraw count and the current run of skipped calls.
func (r *Reducer) Stats() (redraws, skips int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redraws, r.skips
}

// Fingerprint hashes the given values. Equal inputs give equal fingerprints.
func Fingerprint(values ...float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
