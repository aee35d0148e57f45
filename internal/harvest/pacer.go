package harvest

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/notecrawl/internal/browser"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer supplies the randomized magnitudes and pauses that make automated
// browsing look like a person reading.
type Pacer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep SleepFunc
}

// NewPacer creates a Pacer. A nil sleep waits on the wall clock.
func NewPacer(rng *rand.Rand, sleep SleepFunc) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if sleep == nil {
		sleep = browser.Sleep
	}
	return &Pacer{rng: rng, sleep: sleep}
}

// IntBetween returns a uniform integer in [lo, hi].
func (p *Pacer) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rng.Intn(hi-lo+1)
}

// Between returns a uniform duration in [lo, hi).
func (p *Pacer) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rng.Int63n(int64(hi-lo)))
}

// Wait sleeps for base plus a uniform jitter in [lo, hi).
func (p *Pacer) Wait(ctx context.Context, base, lo, hi time.Duration) error {
	return p.sleep(ctx, base+p.Between(lo, hi))
}

// Sleep waits for exactly d.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	return p.sleep(ctx, d)
}
