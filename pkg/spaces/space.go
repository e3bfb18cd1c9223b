// Package spaces describes the shape and sampling behaviour of valid
// observations and actions.
package spaces

import (
	"math/rand"
	"sync"
	"time"
)

// Space is the common surface of every action and observation space.
type Space interface {
	Shape() []int
	Seed(seed int64)
	String() string
}

// sampler owns the RNG shared by a space's Sample calls.
type sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSampler() *sampler {
	return &sampler{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *sampler) seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}

func (s *sampler) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *sampler) read(buf []uint8, low, high uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span := int(high) - int(low) + 1
	for i := range buf {
		buf[i] = low + uint8(s.rng.Intn(span))
	}
}
