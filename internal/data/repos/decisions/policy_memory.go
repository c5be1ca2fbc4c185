package decisions

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
)

type MemoryPolicyRepo struct {
	mu      sync.RWMutex
	seq     int64
	entries map[uuid.UUID]memPolicy
}

type memPolicy struct {
	seq   int64
	entry types.PolicyEntry
}

func NewMemoryPolicyRepo() *MemoryPolicyRepo {
	return &MemoryPolicyRepo{entries: map[uuid.UUID]memPolicy{}}
}

func (r *MemoryPolicyRepo) Create(_ dbctx.Context, entries []*types.PolicyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e == nil {
			continue
		}
		r.seq++
		r.entries[e.ID] = memPolicy{seq: r.seq, entry: *e}
	}
	return nil
}

func (r *MemoryPolicyRepo) List(_ dbctx.Context, domains ...types.Domain) ([]*types.PolicyEntry, error) {
	r.mu.RLock()
	rows := make([]memPolicy, 0, len(r.entries))
	for _, p := range r.entries {
		if len(domains) > 0 && !containsDomain(domains, p.entry.Domain) {
			continue
		}
		rows = append(rows, p)
	}
	r.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*types.PolicyEntry, 0, len(rows))
	for _, p := range rows {
		e := p.entry
		out = append(out, &e)
	}
	return out, nil
}

func (r *MemoryPolicyRepo) Delete(_ dbctx.Context, domain types.Domain, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok || p.entry.Domain != domain {
		return false, nil
	}
	delete(r.entries, id)
	return true, nil
}

func containsDomain(in []types.Domain, d types.Domain) bool {
	for _, v := range in {
		if v == d {
			return true
		}
	}
	return false
}
