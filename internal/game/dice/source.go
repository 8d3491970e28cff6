package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// float53 is the number of distinct values Float64 can return.
const float53 = 1 << 53

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n); Float64 is in [0, 1).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a cryptographically secure float in [0, 1) with 53 bits of precision.
func (c *cryptoSource) Float64() float64 {
	return float64(c.Intn(float53)) / float53
}

// seededSource is a deterministic Source for simulations and tests.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source; equal seeds yield equal sequences.
//
// Postcondition: The returned Source is safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Fixed is a Source that replays scripted values, cycling when exhausted.
// Useful in tests that need an exact random factor or roll outcome.
type Fixed struct {
	mu     sync.Mutex
	Ints   []int
	Floats []float64
	ii, fi int
}

// Intn returns the next scripted int reduced modulo n, or 0 when none are scripted.
func (f *Fixed) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Ints) == 0 {
		return 0
	}
	v := f.Ints[f.ii%len(f.Ints)]
	f.ii++
	return ((v % n) + n) % n
}

// Float64 returns the next scripted float, or 0.5 when none are scripted.
func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Floats) == 0 {
		return 0.5
	}
	v := f.Floats[f.fi%len(f.Floats)]
	f.fi++
	return v
}
