package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]Solution
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]Solution)}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, s Solution) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	s = Prepare(s, time.Now())
	s.Spells = append([]string(nil), s.Spells...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byID[s.ScenarioKey]; ok {
		s.ID = prev.ID
	}
	m.byID[s.ScenarioKey] = s
	return s, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[key]
	if !ok {
		return Solution{}, ErrSolutionNotFound
	}
	s.Spells = append([]string(nil), s.Spells...)
	return s, nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, limit int) ([]Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Solution, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ScenarioKey < out[j].ScenarioKey
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
