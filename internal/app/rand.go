package app

import (
	"math/rand/v2"
	"sync"
)

// RandSource is the pseudo-random source behind fallback offers and price repairs.
// Implementations must be safe for concurrent use: both search passes share one.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand uses the runtime's concurrency-safe generator.
func DefaultRand() RandSource { return globalRand{} }

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// SeededRand returns a deterministic source, for tests and replays.
func SeededRand(seed uint64) RandSource {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
