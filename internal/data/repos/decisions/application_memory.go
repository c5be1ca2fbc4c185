package decisions

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
)

// MemoryApplicationRepo is a process-local record store. Every read and
// write copies the record, so callers never observe partial updates.
type MemoryApplicationRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*types.Application
}

func NewMemoryApplicationRepo() *MemoryApplicationRepo {
	return &MemoryApplicationRepo{byID: map[uuid.UUID]*types.Application{}}
}

func (r *MemoryApplicationRepo) Create(_ dbctx.Context, app *types.Application) error {
	if app == nil || app.ID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, "applications.create", "application id is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[app.ID]; exists {
		return domainagg.InvalidState("applications.create", "application %s already exists", app.ID)
	}
	r.byID[app.ID] = app.Clone()
	return nil
}

func (r *MemoryApplicationRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.byID[id]
	if !ok {
		return nil, domainagg.NotFound("applications.get", "application %s not found", id)
	}
	return app.Clone(), nil
}

func (r *MemoryApplicationRepo) List(_ dbctx.Context, filter ApplicationFilter) ([]*types.Application, error) {
	r.mu.RLock()
	out := make([]*types.Application, 0, len(r.byID))
	for _, app := range r.byID {
		if filter.Domain != "" && app.Domain != filter.Domain {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, app.Status) {
			continue
		}
		out = append(out, app.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryApplicationRepo) UpdateGuarded(_ dbctx.Context, app *types.Application, expected types.Status) (bool, error) {
	if app == nil {
		return false, domainagg.NewError(domainagg.CodeValidation, "applications.update", "application is nil", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[app.ID]
	if !ok || cur.Status != expected || cur.Version != app.Version {
		return false, nil
	}
	app.Version++
	next := app.Clone()
	next.Domain = cur.Domain
	next.Data = cur.Data
	next.CreatedAt = cur.CreatedAt
	r.byID[app.ID] = next
	return true, nil
}

func (r *MemoryApplicationRepo) CountByStatus(_ dbctx.Context) (map[types.Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[types.Status]int64{}
	for _, app := range r.byID {
		out[app.Status]++
	}
	return out, nil
}

func containsStatus(in []types.Status, s types.Status) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}
