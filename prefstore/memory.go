package prefstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/xdswitch/mode"
)

// Memory is a process-local Store. Used for ephemeral runs and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	sets    int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (mode.Mode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[key]; ok {
		return r.Mode, nil
	}
	return DefaultMode, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, v mode.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = Record{Site: key, Mode: v, UpdatedAt: time.Now().Unix()}
	m.sets++
	return nil
}

// Sets returns how many times Set was called.
func (m *Memory) Sets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

// List returns every record ordered by site key.
func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site < out[j].Site })
	return out, nil
}
