package lorasim

//
// Seeded random number generation, grounded on linkfwdcore.go's LinkFwdRNG
// pattern in the teacher: production code depends on a small interface and
// a factory, so tests can inject a deterministic source.
//

import (
	"math/rand"
	"sync"
	"time"
)

// RNG is the randomness a propagation/drop computation needs. It is
// satisfied by *[rand.Rand].
type RNG interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

var _ RNG = &rand.Rand{}

// NewRNGFactory returns a factory producing [RNG] instances. When seed is
// non-zero, every produced RNG derives from it so runs are reproducible
// (spec section 8, property 4, and section 9's "deterministic mode"); the
// factory then always returns the *same* underlying generator wrapped by a
// mutex, since a single broker-wide seed must produce one draw sequence
// shared by every connection. When seed is zero, each call returns a
// freshly time-seeded generator.
func NewRNGFactory(seed int64) func() RNG {
	if seed == 0 {
		return func() RNG {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	shared := &lockedRNG{rnd: rand.New(rand.NewSource(seed))}
	return func() RNG {
		return shared
	}
}

// lockedRNG serializes access to a shared *rand.Rand, since the pipeline
// processes different senders' frames concurrently (spec section 5). The
// mutex makes the shared generator safe to use; it does not fix the order in
// which different connections' draws interleave, which follows goroutine
// scheduling.
type lockedRNG struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

var _ RNG = &lockedRNG{}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}
