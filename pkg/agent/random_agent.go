package agent

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/smbgym/pkg/memory"
	"github.com/boristopalov/smbgym/pkg/spaces"
	"github.com/boristopalov/smbgym/pkg/vector"
)

// Agent picks one action per environment of a vector pool.
type Agent interface {
	// Act returns the next joint action
	Act(space *spaces.MultiDiscrete) []int
	// Observe records the outcome of the last step
	Observe(b vector.Batch)
}

// RandomAgent samples actions uniformly and tracks episode returns.
type RandomAgent struct {
	id      string
	rng     *rand.Rand
	returns []float64
	recent  *memory.Memory[float64]
	mu      sync.Mutex
}

var _ Agent = (*RandomAgent)(nil)

type AgentParams struct {
	AgentID       string
	Seed          int64
	ReturnHistory int
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithSeed(seed int64) AgentOption {
	return func(p *AgentParams) {
		p.Seed = seed
	}
}

// WithReturnHistory sets how many finished episode returns are kept.
func WithReturnHistory(n int) AgentOption {
	return func(p *AgentParams) {
		p.ReturnHistory = n
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:       "agent-" + uuid.New().String(),
		Seed:          time.Now().UnixNano(),
		ReturnHistory: 100,
	}
}

func NewRandomAgent(opts ...AgentOption) *RandomAgent {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	return &RandomAgent{
		id:     params.AgentID,
		rng:    rand.New(rand.NewSource(params.Seed)),
		recent: memory.NewMemory[float64](params.ReturnHistory),
	}
}

func (a *RandomAgent) GetID() string {
	return a.id
}

func (a *RandomAgent) Act(space *spaces.MultiDiscrete) []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]int, len(space.Nvec))
	for i, n := range space.Nvec {
		actions[i] = a.rng.Intn(n)
	}
	return actions
}

// Observe accumulates rewards per environment and stores the return of
// every episode that just ended.
func (a *RandomAgent) Observe(b vector.Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.returns) != len(b.Rewards) {
		a.returns = make([]float64, len(b.Rewards))
	}
	for i, r := range b.Rewards {
		a.returns[i] += r
		if b.Terminateds[i] || b.Truncateds[i] {
			a.recent.Store(a.returns[i])
			a.returns[i] = 0
		}
	}
}

// RecentReturns lists the most recent finished episode returns, oldest first.
func (a *RandomAgent) RecentReturns() []float64 {
	return a.recent.All()
}
