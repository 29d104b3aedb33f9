package stock

import (
	"context"
	"sort"
	"sync"
)

// MemoryBranch names a branch known to the memory store.
type MemoryBranch struct {
	ID   string
	Code string
	Name string
}

// MemoryStore is an in-memory catalog used by local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
	branches map[string]MemoryBranch
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates a store with the given branches.
func NewMemoryStore(branches ...MemoryBranch) *MemoryStore {
	m := &MemoryStore{branches: make(map[string]MemoryBranch)}
	for _, b := range branches {
		m.branches[b.Code] = b
	}
	return m
}

// AddProduct stores a product; its Stock map is copied.
func (m *MemoryStore) AddProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock := make(map[string]int, len(p.Stock))
	for k, v := range p.Stock {
		stock[k] = v
	}
	p.Stock = stock
	m.products = append(m.products, p)
}

func (m *MemoryStore) ProductsBySize(ctx context.Context, size TireSize) ([]Product, error) {
	return m.filter(func(p Product) bool { return p.Size == size })
}

func (m *MemoryStore) ProductsByRim(ctx context.Context, diameter int) ([]Product, error) {
	return m.filter(func(p Product) bool { return p.Size.Diameter == diameter })
}

func (m *MemoryStore) filter(keep func(Product) bool) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Product
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) BranchesWithStock(ctx context.Context, productIDs []int64, minQuantity int) ([]BranchStock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	wanted := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	totals := make(map[string]int)
	for _, p := range m.products {
		if !wanted[p.ID] {
			continue
		}
		for code, q := range p.Stock {
			if q >= minQuantity {
				totals[code] += q
			}
		}
	}
	out := make([]BranchStock, 0, len(totals))
	for code, total := range totals {
		b := m.branches[code]
		out = append(out, BranchStock{BranchID: b.ID, BranchCode: code, BranchName: b.Name, TotalQuantity: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].BranchName < out[j].BranchName
	})
	return out, nil
}
