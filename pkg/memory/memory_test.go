package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	t.Run("keeps the newest entries", func(t *testing.T) {
		m := NewMemory[float64](3)
		for i := 1; i <= 5; i++ {
			m.Store(float64(i))
		}
		assert.Equal(t, []float64{3, 4, 5}, m.All())
		assert.Equal(t, 3, m.Len())
	})

	t.Run("All returns a copy", func(t *testing.T) {
		m := NewMemory[string](2)
		m.Store("a")
		got := m.All()
		got[0] = "changed"
		assert.Equal(t, []string{"a"}, m.All())
	})

	t.Run("capacity is at least one", func(t *testing.T) {
		m := NewMemory[int](0)
		m.Store(1)
		m.Store(2)
		assert.Equal(t, []int{2}, m.All())
		assert.Equal(t, 1, m.Cap())
	})

	t.Run("concurrent stores", func(t *testing.T) {
		m := NewMemory[int](100)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					m.Store(j)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, m.Len())
	})
}
