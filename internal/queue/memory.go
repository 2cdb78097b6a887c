package queue

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process RawQueue for tests and local development. Pop does
// not block; an empty queue reports ErrEmpty immediately.
type Memory struct {
	mu       sync.Mutex
	payloads [][]byte
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Push(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, append([]byte(nil), payload...))
	return nil
}

func (m *Memory) Pop(ctx context.Context, block time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return nil, ErrEmpty
	}
	payload := m.payloads[0]
	m.payloads = m.payloads[1:]
	return payload, nil
}

// Len reports the number of pending payloads.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

var _ RawQueue = (*Memory)(nil)
