package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Observation is a dense uint8 array. Frames are (height, width, channels);
// batched observations carry an extra leading dimension.
type Observation struct {
	Data []uint8
	Dims []int
}

// NewObservation allocates a zeroed observation with the given dimensions.
func NewObservation(dims ...int) Observation {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return Observation{
		Data: make([]uint8, n),
		Dims: append([]int(nil), dims...),
	}
}

// Shape returns a copy of the observation dimensions.
func (o Observation) Shape() []int {
	return append([]int(nil), o.Dims...)
}

// Len returns the number of elements the dimensions describe.
func (o Observation) Len() int {
	if len(o.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range o.Dims {
		n *= d
	}
	return n
}

// At returns the i-th slice along the leading dimension.
func (o Observation) At(i int) (Observation, error) {
	if len(o.Dims) < 2 {
		return Observation{}, fmt.Errorf("observation of shape %s has no batch dimension", FormatShape(o.Dims))
	}
	if i < 0 || i >= o.Dims[0] {
		return Observation{}, fmt.Errorf("index %d out of range for batch of %d", i, o.Dims[0])
	}
	size := o.Len() / o.Dims[0]
	return Observation{
		Data: o.Data[i*size : (i+1)*size],
		Dims: append([]int(nil), o.Dims[1:]...),
	}, nil
}

// Stack batches equally shaped observations under a new leading dimension.
func Stack(obs []Observation) (Observation, error) {
	if len(obs) == 0 {
		return Observation{}, fmt.Errorf("cannot stack zero observations")
	}
	first := obs[0].Dims
	size := obs[0].Len()
	out := Observation{
		Data: make([]uint8, 0, size*len(obs)),
		Dims: append([]int{len(obs)}, first...),
	}
	for i, o := range obs {
		if !sameDims(o.Dims, first) {
			return Observation{}, fmt.Errorf("observation %d has shape %s, want %s",
				i, FormatShape(o.Dims), FormatShape(first))
		}
		if len(o.Data) != size {
			return Observation{}, fmt.Errorf("observation %d holds %d values, shape %s needs %d",
				i, len(o.Data), FormatShape(o.Dims), size)
		}
		out.Data = append(out.Data, o.Data...)
	}
	return out, nil
}

// FormatShape renders dimensions the way array libraries print them: (4, 240, 256, 3).
func FormatShape(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Info carries auxiliary per-step diagnostics.
type Info map[string]any

// Keys returns the info keys in sorted order.
func (i Info) Keys() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StepResult is the outcome of a single environment step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Done reports whether the episode ended, either way.
func (r StepResult) Done() bool {
	return r.Terminated || r.Truncated
}

type ResetOptions struct {
	Seed    *int64
	Options map[string]any
}

// WithSeed returns reset options carrying the given seed.
func WithSeed(seed int64) ResetOptions {
	return ResetOptions{Seed: &seed}
}

type ExperimentStatus struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}
