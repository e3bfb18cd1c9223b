package spaces

import (
	"fmt"
	"sync"

	"github.com/boristopalov/smbgym/pkg/core"
)

// Box is a bounded uint8 array space, the type of image observations.
type Box struct {
	Low  uint8
	High uint8
	Dims []int

	once sync.Once
	s    *sampler
}

func NewBox(low, high uint8, dims ...int) *Box {
	return &Box{Low: low, High: high, Dims: append([]int(nil), dims...)}
}

func (b *Box) Shape() []int { return append([]int(nil), b.Dims...) }

func (b *Box) Seed(seed int64) { b.sampler().seed(seed) }

func (b *Box) Sample() core.Observation {
	obs := core.NewObservation(b.Dims...)
	b.sampler().read(obs.Data, b.Low, b.High)
	return obs
}

// Contains reports whether obs has the box shape and every value is in bounds.
func (b *Box) Contains(obs core.Observation) bool {
	if len(obs.Dims) != len(b.Dims) {
		return false
	}
	for i := range b.Dims {
		if obs.Dims[i] != b.Dims[i] {
			return false
		}
	}
	if len(obs.Data) != obs.Len() {
		return false
	}
	for _, v := range obs.Data {
		if v < b.Low || v > b.High {
			return false
		}
	}
	return true
}

func (b *Box) Equal(other *Box) bool {
	if other == nil || b.Low != other.Low || b.High != other.High || len(b.Dims) != len(other.Dims) {
		return false
	}
	for i := range b.Dims {
		if b.Dims[i] != other.Dims[i] {
			return false
		}
	}
	return true
}

func (b *Box) String() string {
	return fmt.Sprintf("Box(%d, %d, %s, uint8)", b.Low, b.High, core.FormatShape(b.Dims))
}

func (b *Box) sampler() *sampler {
	b.once.Do(func() { b.s = newSampler() })
	return b.s
}
