package memory

import "sync"

// Memory is a bounded FIFO. Storing past capacity evicts the oldest entry.
type Memory[T any] struct {
	stream   []T
	capacity int
	mu       sync.RWMutex
}

func NewMemory[T any](capacity int) *Memory[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory[T]{
		stream:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

// All returns a copy of the stored entries, oldest first
func (m *Memory[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.stream))
	copy(out, m.stream)
	return out
}

func (m *Memory[T]) Store(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stream = append(m.stream, v)
	if len(m.stream) > m.capacity {
		m.stream = m.stream[1:]
	}
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stream)
}

func (m *Memory[T]) Cap() int {
	return m.capacity
}
