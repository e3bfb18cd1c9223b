package spaces

import (
	"fmt"
	"sync"
)

// Discrete is the set {Start, ..., Start+N-1}.
type Discrete struct {
	N     int
	Start int

	once sync.Once
	s    *sampler
}

func NewDiscrete(n int) *Discrete {
	return &Discrete{N: n}
}

func (d *Discrete) Shape() []int { return []int{} }

func (d *Discrete) Seed(seed int64) { d.sampler().seed(seed) }

// Sample draws a uniformly random element.
func (d *Discrete) Sample() int {
	return d.Start + d.sampler().intn(d.N)
}

func (d *Discrete) Contains(a int) bool {
	return a >= d.Start && a < d.Start+d.N
}

func (d *Discrete) Equal(other *Discrete) bool {
	return other != nil && d.N == other.N && d.Start == other.Start
}

func (d *Discrete) String() string {
	if d.Start != 0 {
		return fmt.Sprintf("Discrete(%d, start=%d)", d.N, d.Start)
	}
	return fmt.Sprintf("Discrete(%d)", d.N)
}

func (d *Discrete) sampler() *sampler {
	d.once.Do(func() { d.s = newSampler() })
	return d.s
}
