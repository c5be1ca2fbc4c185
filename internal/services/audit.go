package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// AuditEntry is one record flattened for download. AIResult and AIFailure
// are included in full so an export can be imported again.
type AuditEntry struct {
	ApplicationID       uuid.UUID                      `json:"application_id"`
	Domain              decisions.Domain               `json:"domain"`
	SubmittedAt         time.Time                      `json:"submitted_at"`
	ApplicantData       map[string]any                 `json:"applicant_data"`
	AIDecision          decisions.Outcome              `json:"ai_decision,omitempty"`
	AIConfidence        *float64                       `json:"ai_confidence,omitempty"`
	AIReasoning         string                         `json:"ai_reasoning,omitempty"`
	FinalStatus         decisions.Status               `json:"final_status"`
	FinalDecision       *decisions.Outcome             `json:"final_decision,omitempty"`
	ReviewedAt          *time.Time                     `json:"reviewed_at,omitempty"`
	ReviewedBy          string                         `json:"reviewed_by,omitempty"`
	ReviewerComment     string                         `json:"reviewer_comment,omitempty"`
	IsOverride          bool                           `json:"is_override"`
	OverrideExplanation *decisions.OverrideExplanation `json:"override_explanation,omitempty"`
	RequiresReview      bool                           `json:"requires_review"`
	AgentExplanation    string                         `json:"agent_explanation,omitempty"`
	ExplanationEdited   bool                           `json:"explanation_edited"`
	ExplanationEditedAt *time.Time                     `json:"explanation_edited_at,omitempty"`
	AIResult            *decisions.AIResult            `json:"ai_result,omitempty"`
	AIFailure           *decisions.AIFailure           `json:"ai_failure,omitempty"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

type AuditService interface {
	// Export lists every record, newest submission first.
	Export(ctx context.Context) ([]AuditEntry, error)
	// Import recreates records missing from the store. Existing ids are
	// skipped untouched.
	Import(ctx context.Context, entries []AuditEntry) (*ImportResult, error)
}

type auditService struct {
	log  *logger.Logger
	apps repos.ApplicationRepo
	tx   aggregates.TxRunner
}

func NewAuditService(log *logger.Logger, apps repos.ApplicationRepo, tx aggregates.TxRunner) AuditService {
	if tx == nil {
		tx = aggregates.NoopTxRunner{}
	}
	return &auditService{log: log.With("service", "AuditService"), apps: apps, tx: tx}
}

func (s *auditService) Export(ctx context.Context) ([]AuditEntry, error) {
	all, err := s.apps.List(dbctx.From(ctx), repos.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(all))
	for _, app := range all {
		v, err := app.View()
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, "services.AuditExport", err)
		}
		e := AuditEntry{
			ApplicationID:       v.ID,
			Domain:              v.Domain,
			SubmittedAt:         v.Timestamp,
			ApplicantData:       v.Data,
			FinalStatus:         v.Status,
			FinalDecision:       v.FinalDecision,
			ReviewedAt:          v.ReviewedAt,
			ReviewedBy:          v.ReviewedBy,
			ReviewerComment:     v.ReviewerComment,
			IsOverride:          v.IsOverride,
			OverrideExplanation: v.OverrideExplanation,
			RequiresReview:      v.RequiresReview,
			AgentExplanation:    v.AgentExplanation,
			ExplanationEdited:   v.ExplanationEdited,
			ExplanationEditedAt: v.ExplanationEditedAt,
			AIResult:            v.AIResult,
			AIFailure:           v.AIFailure,
		}
		if v.AIResult != nil {
			conf := v.AIResult.Decision.Confidence
			e.AIDecision = v.AIResult.Decision.Status
			e.AIConfidence = &conf
			e.AIReasoning = v.AIResult.Decision.Reasoning
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *auditService) Import(ctx context.Context, entries []AuditEntry) (*ImportResult, error) {
	const op = "services.AuditImport"
	res := &ImportResult{}
	restored := make([]*decisions.Application, 0, len(entries))
	for i, e := range entries {
		app, err := restore(e)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: %s", i+1, domainagg.MessageOf(err)))
			continue
		}
		restored = append(restored, app)
	}
	if len(res.Errors) > 0 {
		return res, domainagg.NewError(domainagg.CodeValidation, op, strings.Join(res.Errors, "; "), decisions.ErrValidation)
	}

	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		for _, app := range restored {
			_, err := s.apps.GetByID(dbc, app.ID)
			switch {
			case err == nil:
				res.Skipped++
				continue
			case !domainagg.IsCode(err, domainagg.CodeNotFound):
				return err
			}
			if err := s.apps.Create(dbc, app); err != nil {
				return err
			}
			res.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("audit log imported", "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// restore rebuilds a record from an audit entry and checks the result is a
// state the lifecycle could have produced.
func restore(e AuditEntry) (*decisions.Application, error) {
	const op = "services.restore"
	if e.ApplicationID == uuid.Nil {
		return nil, domainagg.Validation(op, "application_id is required")
	}
	if _, ok := decisions.ParseDomain(string(e.Domain)); !ok {
		return nil, domainagg.Validation(op, "unknown domain %q", e.Domain)
	}
	st, ok := decisions.ParseStatus(string(e.FinalStatus))
	if !ok {
		return nil, domainagg.Validation(op, "unknown status %q", e.FinalStatus)
	}
	if len(e.ApplicantData) == 0 {
		return nil, domainagg.Validation(op, "applicant_data is empty")
	}
	data, err := json.Marshal(e.ApplicantData)
	if err != nil {
		return nil, domainagg.Validation(op, "applicant_data: %v", err)
	}
	submitted := e.SubmittedAt.UTC()
	if submitted.IsZero() {
		return nil, domainagg.Validation(op, "submitted_at is required")
	}
	app := &decisions.Application{
		ID:                  e.ApplicationID,
		Domain:              e.Domain,
		Data:                datatypes.JSON(data),
		Status:              st,
		FinalDecision:       e.FinalDecision,
		ReviewerComment:     e.ReviewerComment,
		ReviewedBy:          e.ReviewedBy,
		ReviewedAt:          e.ReviewedAt,
		IsOverride:          e.IsOverride,
		AgentExplanation:    e.AgentExplanation,
		ExplanationEdited:   e.ExplanationEdited,
		ExplanationEditedAt: e.ExplanationEditedAt,
		CreatedAt:           submitted,
		UpdatedAt:           submitted,
	}
	if e.ReviewedAt != nil {
		app.UpdatedAt = e.ReviewedAt.UTC()
	}
	if app.AIResult, err = jsonColumn(e.AIResult); err != nil {
		return nil, domainagg.Validation(op, "ai_result: %v", err)
	}
	if app.AIFailure, err = jsonColumn(e.AIFailure); err != nil {
		return nil, domainagg.Validation(op, "ai_failure: %v", err)
	}
	if app.OverrideExplanation, err = jsonColumn(e.OverrideExplanation); err != nil {
		return nil, domainagg.Validation(op, "override_explanation: %v", err)
	}
	if e.AIConfidence != nil && !unitInterval(*e.AIConfidence) {
		return nil, domainagg.Validation(op, "ai_confidence %v is outside [0,1]", *e.AIConfidence)
	}
	if e.AIResult != nil && !unitInterval(e.AIResult.Decision.Confidence) {
		return nil, domainagg.Validation(op, "ai_result confidence %v is outside [0,1]", e.AIResult.Decision.Confidence)
	}
	if _, err := app.Lifecycle(); err != nil {
		return nil, domainagg.Validation(op, "%s", domainagg.MessageOf(err))
	}
	if app.Status == decisions.StatusCompleted {
		want, err := app.WouldOverride(*app.FinalDecision)
		if err != nil {
			return nil, domainagg.Validation(op, "%s", domainagg.MessageOf(err))
		}
		if want != app.IsOverride {
			return nil, domainagg.Validation(op, "is_override=%t disagrees with the AI recommendation and final decision", app.IsOverride)
		}
	}
	return app, nil
}

// unitInterval also rejects NaN.
func unitInterval(v float64) bool { return v >= 0 && v <= 1 }

func jsonColumn[T any](v *T) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
