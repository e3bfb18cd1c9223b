package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boristopalov/smbgym/pkg/spaces"
	"github.com/boristopalov/smbgym/pkg/vector"
)

func TestRandomAgent(t *testing.T) {
	t.Run("ids", func(t *testing.T) {
		a := NewRandomAgent(WithAgentID("test-agent"))
		assert.Equal(t, "test-agent", a.GetID())
		assert.True(t, strings.HasPrefix(NewRandomAgent().GetID(), "agent-"))
	})

	t.Run("actions stay in the space and repeat per seed", func(t *testing.T) {
		space := spaces.NewMultiDiscrete(7, 7, 3)
		a, b := NewRandomAgent(WithSeed(5)), NewRandomAgent(WithSeed(5))
		for i := 0; i < 50; i++ {
			act := a.Act(space)
			assert.True(t, space.Contains(act), "%v", act)
			assert.Equal(t, act, b.Act(space))
		}
	})

	t.Run("tracks episode returns", func(t *testing.T) {
		a := NewRandomAgent(WithReturnHistory(2))
		a.Observe(vector.Batch{
			Rewards:     []float64{1, 2},
			Terminateds: []bool{false, false},
			Truncateds:  []bool{false, false},
		})
		a.Observe(vector.Batch{
			Rewards:     []float64{3, 4},
			Terminateds: []bool{true, false},
			Truncateds:  []bool{false, true},
		})
		assert.Equal(t, []float64{4, 6}, a.RecentReturns())

		a.Observe(vector.Batch{
			Rewards:     []float64{-1, 0},
			Terminateds: []bool{true, false},
			Truncateds:  []bool{false, false},
		})
		assert.Equal(t, []float64{6, -1}, a.RecentReturns())
	})
}
