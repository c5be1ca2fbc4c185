package decisions

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// ApplicationFilter narrows List. Zero values match everything; results are
// newest first.
type ApplicationFilter struct {
	Statuses []types.Status
	Domain   types.Domain
	Limit    int
}

// ApplicationRepo is the record store.
type ApplicationRepo interface {
	Create(dbc dbctx.Context, app *types.Application) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error)
	List(dbc dbctx.Context, filter ApplicationFilter) ([]*types.Application, error)
	// UpdateGuarded writes app only if the stored status is still expected
	// and the stored version still equals app.Version. On success
	// app.Version is advanced to the stored value.
	UpdateGuarded(dbc dbctx.Context, app *types.Application, expected types.Status) (bool, error)
	CountByStatus(dbc dbctx.Context) (map[types.Status]int64, error)
}

type applicationRepo struct {
	db    *gorm.DB
	guard dataagg.CASGuard
	log   *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{
		db:    db,
		guard: dataagg.NewCASGuard(db),
		log:   baseLog.With("repo", "ApplicationRepo"),
	}
}

func (r *applicationRepo) Create(dbc dbctx.Context, app *types.Application) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if app == nil || app.ID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, "applications.create", "application id is required", nil)
	}
	if err := transaction.WithContext(dbc.Context()).Create(app).Error; err != nil {
		return dataagg.MapError("applications.create", err)
	}
	return nil
}

func (r *applicationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var app types.Application
	err := transaction.WithContext(dbc.Context()).Where("id = ?", id).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainagg.NotFound("applications.get", "application %s not found", id)
	}
	if err != nil {
		return nil, dataagg.MapError("applications.get", err)
	}
	return &app, nil
}

func (r *applicationRepo) List(dbc dbctx.Context, filter ApplicationFilter) ([]*types.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Context()).Model(&types.Application{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if filter.Domain != "" {
		q = q.Where("domain = ?", string(filter.Domain))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []*types.Application
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, dataagg.MapError("applications.list", err)
	}
	return out, nil
}

func (r *applicationRepo) UpdateGuarded(dbc dbctx.Context, app *types.Application, expected types.Status) (bool, error) {
	if app == nil {
		return false, domainagg.NewError(domainagg.CodeValidation, "applications.update", "application is nil", nil)
	}
	ok, err := r.guard.UpdateByStatusAndVersion(dbc, types.Application{}.TableName(), app.ID, []string{string(expected)}, app.Version, mutableColumns(app))
	if err != nil {
		return false, dataagg.MapError("applications.update", err)
	}
	if !ok {
		r.log.Debug("Guarded update lost", "application_id", app.ID.String(), "expected_status", expected, "version", app.Version)
		return false, nil
	}
	app.Version++
	return true, nil
}

func (r *applicationRepo) CountByStatus(dbc dbctx.Context) (map[types.Status]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		Status string
		N      int64
	}
	err := transaction.WithContext(dbc.Context()).
		Model(&types.Application{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, dataagg.MapError("applications.count", err)
	}
	out := map[types.Status]int64{}
	for _, row := range rows {
		out[types.Status(strings.TrimSpace(row.Status))] = row.N
	}
	return out, nil
}

// mutableColumns lists every column a transition may change. id, domain,
// data and created_at are immutable after submission.
func mutableColumns(app *types.Application) map[string]any {
	var final any
	if app.FinalDecision != nil {
		final = string(*app.FinalDecision)
	}
	return map[string]any{
		"status":                string(app.Status),
		"ai_result":             app.AIResult,
		"ai_failure":            app.AIFailure,
		"final_decision":        final,
		"reviewer_comment":      app.ReviewerComment,
		"reviewed_by":           app.ReviewedBy,
		"reviewed_at":           app.ReviewedAt,
		"is_override":           app.IsOverride,
		"override_explanation":  app.OverrideExplanation,
		"agent_explanation":     app.AgentExplanation,
		"explanation_edited":    app.ExplanationEdited,
		"explanation_edited_at": app.ExplanationEditedAt,
		"updated_at":            app.UpdatedAt,
	}
}

func statusStrings(in []types.Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
