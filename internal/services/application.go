package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/ctxutil"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// Dispatcher hands a pending_ai record to the background AI stage. Claim
// marks an id as owned by an inline caller so the dispatcher never queues it;
// Release hands it back.
type Dispatcher interface {
	Enqueue(id uuid.UUID) bool
	Claim(id uuid.UUID) bool
	Release(id uuid.UUID)
}

type ReviewRequest struct {
	ID       uuid.UUID
	Decision string
	Comment  string
	// Reviewer falls back to the authenticated subject on the context.
	Reviewer string
}

type ListRequest struct {
	Status string
	Domain string
	Limit  int
}

type ApplicationService interface {
	Submit(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error)
	// Create persists a pending_ai record without dispatching it.
	Create(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error)
	Get(ctx context.Context, id uuid.UUID) (*decisions.Application, error)
	List(ctx context.Context, req ListRequest) ([]*decisions.Application, error)
	RunAIStage(ctx context.Context, id uuid.UUID) (*decisions.Application, error)
	Review(ctx context.Context, req ReviewRequest) (*decisions.Application, error)
	EditExplanation(ctx context.Context, id uuid.UUID, text string) (*decisions.Application, error)
	// Evaluate runs the AI stage without persisting a record.
	Evaluate(ctx context.Context, domain string, data map[string]any) (Evaluation, error)
	// Inquiry submits and evaluates synchronously. When the AI stage fails
	// the persisted record is returned alongside the error.
	Inquiry(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error)
	CallLogs(ctx context.Context, id uuid.UUID) ([]*decisions.ModelCallLog, error)
	SetDispatcher(d Dispatcher)
}

type applicationService struct {
	log        *logger.Logger
	apps       repos.ApplicationRepo
	calls      repos.ModelCallLogRepo
	schemas    *decisions.Schemas
	engine     DecisionEngine
	dispatcher Dispatcher
	now        func() time.Time
}

func NewApplicationService(log *logger.Logger, r repos.Repos, schemas *decisions.Schemas, engine DecisionEngine) ApplicationService {
	return &applicationService{
		log:     log.With("service", "ApplicationService"),
		apps:    r.Applications,
		calls:   r.CallLogs,
		schemas: schemas,
		engine:  engine,
		now:     time.Now,
	}
}

func (s *applicationService) SetDispatcher(d Dispatcher) { s.dispatcher = d }

func (s *applicationService) validate(op, domain string, data map[string]any) (decisions.Domain, map[string]any, error) {
	d, ok := decisions.ParseDomain(domain)
	if !ok {
		return "", nil, aggregates.NewError(aggregates.CodeValidation, op, "decision_type must be one of loan, job, insurance, credit", decisions.ErrValidation)
	}
	fields, err := s.schemas.Validate(d, data)
	if err != nil {
		return "", nil, err
	}
	return d, fields, nil
}

func (s *applicationService) Create(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error) {
	app, err := s.newRecord("services.Create", domain, data)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) newRecord(op, domain string, data map[string]any) (*decisions.Application, error) {
	d, fields, err := s.validate(op, domain, data)
	if err != nil {
		return nil, err
	}
	return decisions.NewApplication(d, fields, s.now())
}

func (s *applicationService) store(ctx context.Context, app *decisions.Application) error {
	if err := s.apps.Create(dbctx.From(ctx), app); err != nil {
		return err
	}
	s.log.Info("application submitted", "application_id", app.ID, "domain", app.Domain)
	return nil
}

func (s *applicationService) Submit(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error) {
	app, err := s.Create(ctx, domain, data)
	if err != nil {
		return nil, err
	}
	if s.dispatcher == nil || !s.dispatcher.Enqueue(app.ID) {
		s.log.Warn("AI stage queue unavailable; record left for the recovery sweep", "application_id", app.ID)
	}
	return app, nil
}

func (s *applicationService) Get(ctx context.Context, id uuid.UUID) (*decisions.Application, error) {
	return s.apps.GetByID(dbctx.From(ctx), id)
}

func (s *applicationService) List(ctx context.Context, req ListRequest) ([]*decisions.Application, error) {
	const op = "services.List"
	filter := repos.ApplicationFilter{Limit: req.Limit}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		st, ok := decisions.ParseStatus(raw)
		if !ok {
			return nil, aggregates.Validation(op, "status must be one of pending_ai, pending_human, completed")
		}
		filter.Statuses = []decisions.Status{st}
	}
	if raw := strings.TrimSpace(req.Domain); raw != "" {
		d, ok := decisions.ParseDomain(raw)
		if !ok {
			return nil, aggregates.Validation(op, "unknown domain %q", raw)
		}
		filter.Domain = d
	}
	return s.apps.List(dbctx.From(ctx), filter)
}

// RunAIStage evaluates a pending_ai record. The model is called without
// holding anything; the write is a compare-and-set on pending_ai, so a
// second run on the same record fails with invalid_state and changes
// nothing.
func (s *applicationService) RunAIStage(ctx context.Context, id uuid.UUID) (*decisions.Application, error) {
	const op = "services.RunAIStage"
	dbc := dbctx.From(ctx)
	app, err := s.apps.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if app.Status != decisions.StatusPendingAI {
		return nil, aggregates.NewError(aggregates.CodeInvalidState, op, "application "+id.String()+" is "+string(app.Status)+"; requires pending_ai", decisions.ErrInvalidState)
	}
	fields, err := app.Fields()
	if err != nil {
		return nil, aggregates.Wrap(aggregates.CodeInternal, op, err)
	}

	ev := s.engine.Evaluate(ctx, EvaluateRequest{ApplicationID: &app.ID, Domain: app.Domain, Fields: fields})

	switch {
	case ev.Result != nil:
		err = app.CompleteAI(*ev.Result, ev.Failure, s.now())
	case ev.Failure != nil:
		err = app.FailAI(*ev.Failure, s.now())
	default:
		err = aggregates.NewError(aggregates.CodeInternal, op, "engine returned neither result nor failure", nil)
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.apps.UpdateGuarded(dbc, app, decisions.StatusPendingAI)
	if err != nil {
		return nil, err
	}
	if err := dataagg.RequireCASSuccess(ok, op, "application "+id.String()+" left pending_ai concurrently", decisions.ErrInvalidState); err != nil {
		return nil, err
	}

	observability.Current().ObserveAIStage(string(app.Domain), stageOutcome(ev))
	logKVs := []any{"application_id", app.ID, "domain", app.Domain}
	if ev.Result != nil {
		logKVs = append(logKVs, "ai_status", ev.Result.Decision.Status, "confidence", ev.Result.Decision.Confidence, "engine", ev.Result.Audit.Engine, "cached", ev.Result.Audit.Cached)
	}
	if ev.Failure != nil {
		s.log.Warn("AI stage flagged for manual review", append(logKVs, "failure", ev.Failure.Kind)...)
	} else {
		s.log.Info("AI stage complete", logKVs...)
	}
	return app, nil
}

func (s *applicationService) Review(ctx context.Context, req ReviewRequest) (*decisions.Application, error) {
	const op = "services.Review"
	dbc := dbctx.From(ctx)
	app, err := s.apps.GetByID(dbc, req.ID)
	if err != nil {
		return nil, err
	}
	if err := app.CanReview(); err != nil {
		return nil, err
	}
	decision, ok := decisions.ParseOutcome(req.Decision)
	if !ok {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "decision must be approved or rejected", decisions.ErrValidation)
	}
	reviewer := strings.TrimSpace(req.Reviewer)
	if reviewer == "" {
		reviewer = ctxutil.Reviewer(ctx)
	}

	in := decisions.ReviewInput{Decision: decision, Comment: req.Comment, Reviewer: reviewer}
	override, err := app.WouldOverride(decision)
	if err != nil {
		return nil, err
	}
	if override {
		exp := s.engine.ExplainOverride(ctx, OverrideRequest{App: app, Decision: decision, Comment: req.Comment})
		in.Override = &exp
	}
	if err := app.Review(in, s.now()); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateGuarded(dbc, app, decisions.StatusPendingHuman)
	if err != nil {
		return nil, err
	}
	if err := dataagg.RequireCASSuccess(updated, op, "application "+req.ID.String()+" changed during review; reload and retry", decisions.ErrInvalidState); err != nil {
		return nil, err
	}
	observability.Current().ObserveReview(string(app.Domain), app.IsOverride)
	s.log.Info("application reviewed", "application_id", app.ID, "decision", decision, "is_override", app.IsOverride, "reviewer", reviewer)
	return app, nil
}

func (s *applicationService) EditExplanation(ctx context.Context, id uuid.UUID, text string) (*decisions.Application, error) {
	const op = "services.EditExplanation"
	dbc := dbctx.From(ctx)
	app, err := s.apps.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	current := app.Status
	if err := app.EditExplanation(text, s.now()); err != nil {
		return nil, err
	}
	ok, err := s.apps.UpdateGuarded(dbc, app, current)
	if err != nil {
		return nil, err
	}
	if err := dataagg.RequireCASSuccess(ok, op, "application "+id.String()+" changed while editing; retry", decisions.ErrInvalidState); err != nil {
		return nil, err
	}
	s.log.Info("explanation edited", "application_id", id, "reviewer", ctxutil.Reviewer(ctx))
	return app, nil
}

func (s *applicationService) Evaluate(ctx context.Context, domain string, data map[string]any) (Evaluation, error) {
	d, fields, err := s.validate("services.Evaluate", domain, data)
	if err != nil {
		return Evaluation{}, err
	}
	ev := s.engine.Evaluate(ctx, EvaluateRequest{Domain: d, Fields: fields})
	if ev.Result == nil {
		msg := decisions.ModelUnavailableNote
		if ev.Failure != nil && ev.Failure.Detail != "" {
			msg += ": " + ev.Failure.Detail
		}
		return ev, aggregates.NewError(aggregates.CodeModelUnavailable, "services.Evaluate", msg, nil)
	}
	return ev, nil
}

// Inquiry claims the new id before the record is written, so the recovery
// sweep cannot queue it while the model call below is in flight.
func (s *applicationService) Inquiry(ctx context.Context, domain string, data map[string]any) (*decisions.Application, error) {
	const op = "services.Inquiry"
	app, err := s.newRecord(op, domain, data)
	if err != nil {
		return nil, err
	}
	if d := s.dispatcher; d != nil {
		if !d.Claim(app.ID) {
			return nil, aggregates.NewError(aggregates.CodeInternal, op, "application id "+app.ID.String()+" already claimed", nil)
		}
		defer d.Release(app.ID)
	}
	if err := s.store(ctx, app); err != nil {
		return nil, err
	}
	done, err := s.RunAIStage(ctx, app.ID)
	if err != nil {
		return app, err
	}
	return done, nil
}

func (s *applicationService) CallLogs(ctx context.Context, id uuid.UUID) ([]*decisions.ModelCallLog, error) {
	dbc := dbctx.From(ctx)
	if _, err := s.apps.GetByID(dbc, id); err != nil {
		return nil, err
	}
	return s.calls.ListByApplication(dbc, id)
}

func stageOutcome(ev Evaluation) string {
	if ev.Failure != nil {
		return ev.Failure.Kind
	}
	return string(ev.Result.Decision.Status)
}
