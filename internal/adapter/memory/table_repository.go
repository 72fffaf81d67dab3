package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type tableRepository struct {
	mu      sync.RWMutex
	byLabel map[string]*domain.Table
	nextID  int64
}

func NewTableRepository() interfaces.TableRepository {
	return &tableRepository{byLabel: make(map[string]*domain.Table)}
}

func (r *tableRepository) Upsert(ctx context.Context, table *domain.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byLabel[table.Label]; ok {
		table.ID = existing.ID
	} else {
		r.nextID++
		table.ID = r.nextID
	}
	cp := *table
	r.byLabel[table.Label] = &cp
	return nil
}

func (r *tableRepository) ListAll(ctx context.Context) ([]*domain.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Table, 0, len(r.byLabel))
	for _, t := range r.byLabel {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
