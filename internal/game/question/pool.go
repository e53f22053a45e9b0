package question

import (
	"context"
	"sync"
)

// MemoryPool is an in-memory UsedPool, used by tests and by replicas that
// have no store attached.
type MemoryPool struct {
	mu   sync.Mutex
	used map[string]bool
}

// NewMemoryPool creates an empty in-memory used pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{used: make(map[string]bool)}
}

func (p *MemoryPool) Used(_ context.Context) (map[string]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]bool, len(p.used))
	for id := range p.used {
		out[id] = true
	}
	return out, nil
}

func (p *MemoryPool) MarkUsed(_ context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		p.used[id] = true
	}
	return nil
}

func (p *MemoryPool) Reset(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used = make(map[string]bool)
	return nil
}
