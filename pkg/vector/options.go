package vector

import "github.com/google/uuid"

type poolParams struct {
	id      string
	metrics *Metrics
}

type Option func(*poolParams)

// WithPoolID sets the id used as the metrics label.
func WithPoolID(id string) Option {
	return func(p *poolParams) {
		p.id = id
	}
}

// WithMetrics records pool activity in m instead of DefaultMetrics.
func WithMetrics(m *Metrics) Option {
	return func(p *poolParams) {
		p.metrics = m
	}
}

func newPoolParams(opts []Option) *poolParams {
	p := &poolParams{id: "pool-" + uuid.New().String()}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = DefaultMetrics()
	}
	return p
}
