package location

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore holds branches in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	branches map[string]BranchInfo
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore seeds the store.
func NewMemoryStore(branches ...BranchInfo) *MemoryStore {
	m := &MemoryStore{branches: make(map[string]BranchInfo)}
	for _, b := range branches {
		m.branches[b.Code] = b
	}
	return m
}

func (m *MemoryStore) BranchByCode(ctx context.Context, code string) (BranchInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return BranchInfo{}, m.Err
	}
	b, ok := m.branches[code]
	if !ok {
		return BranchInfo{}, ErrBranchNotFound
	}
	return b, nil
}

func (m *MemoryStore) ActiveBranches(ctx context.Context) ([]BranchInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]BranchInfo, 0, len(m.branches))
	for _, b := range m.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
