package spaces

import (
	"fmt"
	"strings"
	"sync"
)

// MultiDiscrete is a product of discrete spaces, element i in [0, Nvec[i]).
type MultiDiscrete struct {
	Nvec []int

	once sync.Once
	s    *sampler
}

func NewMultiDiscrete(nvec ...int) *MultiDiscrete {
	return &MultiDiscrete{Nvec: append([]int(nil), nvec...)}
}

func (m *MultiDiscrete) Shape() []int { return []int{len(m.Nvec)} }

func (m *MultiDiscrete) Seed(seed int64) { m.sampler().seed(seed) }

func (m *MultiDiscrete) Sample() []int {
	out := make([]int, len(m.Nvec))
	s := m.sampler()
	for i, n := range m.Nvec {
		out[i] = s.intn(n)
	}
	return out
}

func (m *MultiDiscrete) Contains(actions []int) bool {
	if len(actions) != len(m.Nvec) {
		return false
	}
	for i, a := range actions {
		if a < 0 || a >= m.Nvec[i] {
			return false
		}
	}
	return true
}

func (m *MultiDiscrete) String() string {
	parts := make([]string, len(m.Nvec))
	for i, n := range m.Nvec {
		parts[i] = fmt.Sprint(n)
	}
	return "MultiDiscrete([" + strings.Join(parts, " ") + "])"
}

func (m *MultiDiscrete) sampler() *sampler {
	m.once.Do(func() { m.s = newSampler() })
	return m.s
}

// BatchDiscrete is the joint action space of n copies of d.
// Non-zero starts are not representable and are dropped.
func BatchDiscrete(d *Discrete, n int) *MultiDiscrete {
	nvec := make([]int, n)
	for i := range nvec {
		nvec[i] = d.N
	}
	return NewMultiDiscrete(nvec...)
}

// BatchBox is the joint observation space of n copies of b.
func BatchBox(b *Box, n int) *Box {
	return NewBox(b.Low, b.High, append([]int{n}, b.Dims...)...)
}
