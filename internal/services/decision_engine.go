package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/parse"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/prompts"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/rules"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/ctxutil"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

const tracerName = "xai-decision-backend/decisions"

// Evaluation is the outcome of one AI stage run. Result is nil only when the
// model was unavailable; a parse failure carries the fallback result and a
// Failure with the raw text.
type Evaluation struct {
	Result  *decisions.AIResult
	Failure *decisions.AIFailure
}

type EvaluateRequest struct {
	ApplicationID *uuid.UUID
	Domain        decisions.Domain
	Fields        map[string]any
}

type OverrideRequest struct {
	App      *decisions.Application
	Decision decisions.Outcome
	Comment  string
}

// DecisionEngine turns applicant data into an AI result and justifies
// reviewer overrides. It never returns an error: every failure is folded
// into the Evaluation so the record still reaches a reviewer.
type DecisionEngine interface {
	Evaluate(ctx context.Context, req EvaluateRequest) Evaluation
	ExplainOverride(ctx context.Context, req OverrideRequest) decisions.OverrideExplanation
	FastMode() bool
}

type DecisionEngineConfig struct {
	FastMode     bool
	HistoryLimit int
}

type decisionEngine struct {
	log      *logger.Logger
	model    engine.Engine
	cache    ResultCache
	policies repos.PolicyRepo
	apps     repos.ApplicationRepo
	calls    repos.ModelCallLogRepo
	cfg      DecisionEngineConfig
	tracer   trace.Tracer
	now      func() time.Time
}

// NewDecisionEngine wires the model path. model may be nil only in fast mode.
func NewDecisionEngine(log *logger.Logger, model engine.Engine, cache ResultCache, r repos.Repos, cfg DecisionEngineConfig) DecisionEngine {
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	if cache == nil {
		cache = NewMemoryCache(100, time.Hour)
	}
	return &decisionEngine{
		log:      log.With("service", "DecisionEngine"),
		model:    model,
		cache:    cache,
		policies: r.Policies,
		apps:     r.Applications,
		calls:    r.CallLogs,
		cfg:      cfg,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

func (e *decisionEngine) FastMode() bool { return e.cfg.FastMode || e.model == nil }

func (e *decisionEngine) Evaluate(ctx context.Context, req EvaluateRequest) Evaluation {
	if e.FastMode() {
		res := rules.Evaluate(req.Domain, req.Fields)
		res.Audit.GeneratedAt = e.now().UTC()
		return Evaluation{Result: &res}
	}

	dbc := dbctx.From(ctx)
	policies := e.policyTexts(dbc, req.Domain)
	key := CacheKey(req.Domain, req.Fields, policies)
	cached, hit := e.cache.Get(ctx, key)
	observability.Current().ObserveCache(hit)
	if hit {
		cached.Audit.Cached = true
		e.log.Debug("decision served from cache", "domain", req.Domain)
		return Evaluation{Result: cached}
	}

	prompt := prompts.Build(prompts.Input{
		Domain:    req.Domain,
		Applicant: req.Fields,
		Policies:  policies,
		Prior:     e.priorDecisions(dbc, req.Domain),
	})

	raw, dur, err := e.call(ctx, decisions.CallTypeDecision, req.ApplicationID, req.Domain, prompt)
	now := e.now().UTC()
	if err != nil {
		return Evaluation{Failure: &decisions.AIFailure{
			Kind:       decisions.FailureModelUnavailable,
			Message:    decisions.ModelUnavailableNote,
			Detail:     err.Error(),
			OccurredAt: now,
		}}
	}

	parsed := parse.Decision(raw)
	if !parsed.OK() {
		e.log.Warn("model output rejected by parser", "domain", req.Domain, "reason", parsed.Failure.Reason)
		fb := parse.Fallback()
		fb.Audit = decisions.ResultAudit{Engine: e.model.Name(), Model: e.model.Model(), DurationMS: dur.Milliseconds(), GeneratedAt: now}
		return Evaluation{
			Result: &fb,
			Failure: &decisions.AIFailure{
				Kind:       decisions.FailureParse,
				Message:    decisions.ParseFailureNote,
				Detail:     string(parsed.Failure.Reason),
				RawOutput:  raw,
				OccurredAt: now,
			},
		}
	}

	res := *parsed.Result
	res.Audit = decisions.ResultAudit{Engine: e.model.Name(), Model: e.model.Model(), DurationMS: dur.Milliseconds(), GeneratedAt: now}
	e.cache.Set(ctx, key, res)
	return Evaluation{Result: &res}
}

// policyTexts lists global policies before domain policies.
func (e *decisionEngine) policyTexts(dbc dbctx.Context, d decisions.Domain) []string {
	entries, err := e.policies.List(dbc, decisions.DomainGlobal, d)
	if err != nil {
		e.log.Warn("policy lookup failed; prompting without policies", "domain", d, "error", err)
		return nil
	}
	var global, scoped []string
	for _, p := range entries {
		if p.Domain == decisions.DomainGlobal {
			global = append(global, p.Text)
		} else {
			scoped = append(scoped, p.Text)
		}
	}
	return append(global, scoped...)
}

func (e *decisionEngine) priorDecisions(dbc dbctx.Context, d decisions.Domain) []prompts.PriorDecision {
	if e.cfg.HistoryLimit == 0 || e.apps == nil {
		return nil
	}
	recent, err := e.apps.List(dbc, repos.ApplicationFilter{
		Statuses: []decisions.Status{decisions.StatusCompleted},
		Domain:   d,
		Limit:    e.cfg.HistoryLimit,
	})
	if err != nil {
		e.log.Warn("prior decision lookup failed", "domain", d, "error", err)
		return nil
	}
	out := make([]prompts.PriorDecision, 0, len(recent))
	for _, app := range recent {
		if app.FinalDecision == nil {
			continue
		}
		res, err := app.AI()
		if err != nil {
			continue
		}
		reasoning := app.DisplayedReasoning(res)
		if app.IsOverride && app.ReviewerComment != "" {
			reasoning = app.ReviewerComment
		}
		if strings.TrimSpace(reasoning) == "" {
			continue
		}
		out = append(out, prompts.PriorDecision{Outcome: *app.FinalDecision, Reasoning: reasoning})
	}
	return out
}

// ExplainOverride prefers the alternative prepared with the result, then a
// second model call, then a fixed explanation built from the comment.
func (e *decisionEngine) ExplainOverride(ctx context.Context, req OverrideRequest) decisions.OverrideExplanation {
	app := req.App
	res, _ := app.AI()
	recommended := decisions.OutcomeRejected
	if res != nil {
		recommended = res.Decision.Status
	}
	note := fmt.Sprintf("Reviewer changed the AI recommendation from %s to %s.", recommended.Upper(), req.Decision.Upper())

	if res != nil && res.Alternative != nil && res.Alternative.Outcome == req.Decision {
		return decisions.OverrideExplanation{
			Summary:           summaryFor(req.Decision),
			DetailedReasoning: res.Alternative.Reasoning,
			NextSteps:         append([]string{}, res.Alternative.Counterfactuals...),
			Conditions:        []string{},
			OverrideContext:   withComment(note, req.Comment),
			Source:            decisions.OverrideSourcePregenerated,
		}
	}

	if !e.FastMode() {
		fields, _ := app.Fields()
		prompt := prompts.BuildOverride(prompts.OverrideInput{
			Domain:           app.Domain,
			Applicant:        fields,
			AIRecommendation: recommended,
			Decision:         req.Decision,
			Comment:          req.Comment,
		})
		id := app.ID
		raw, _, err := e.call(ctx, decisions.CallTypeOverride, &id, app.Domain, prompt)
		if err == nil {
			if out, ok := parse.Override(raw); ok {
				if out.OverrideContext == "" {
					out.OverrideContext = withComment(note, req.Comment)
				}
				return *out
			}
			e.log.Warn("override explanation unparseable; using fallback", "application_id", app.ID)
		}
	}

	return fallbackOverride(req.Decision, req.Comment, note)
}

func summaryFor(d decisions.Outcome) string {
	if d == decisions.OutcomeApproved {
		return "Your application has been approved following a review by our team."
	}
	return "Your application was not approved following a review by our team."
}

func withComment(note, comment string) string {
	if c := strings.TrimSpace(comment); c != "" {
		return note + " Reviewer note: " + c
	}
	return note
}

func fallbackOverride(d decisions.Outcome, comment, note string) decisions.OverrideExplanation {
	reasoning := strings.TrimSpace(comment)
	if reasoning == "" {
		reasoning = "A reviewer assessed your application in full and reached a different conclusion than the automated analysis."
	}
	steps := []string{"Contact our support team if you have questions about this decision."}
	if d == decisions.OutcomeApproved {
		steps = []string{"Watch for a follow-up message with the next steps to complete your application."}
	}
	return decisions.OverrideExplanation{
		Summary:           summaryFor(d),
		DetailedReasoning: reasoning,
		NextSteps:         steps,
		Conditions:        []string{},
		OverrideContext:   withComment(note, comment),
		Source:            decisions.OverrideSourceFallback,
	}
}

// call runs one model round trip inside a span and records it in the call log.
func (e *decisionEngine) call(ctx context.Context, callType string, appID *uuid.UUID, d decisions.Domain, prompt string) (string, time.Duration, error) {
	ctx, span := e.tracer.Start(ctx, "model."+callType, trace.WithAttributes(
		attribute.String("model.engine", e.model.Name()),
		attribute.String("model.name", e.model.Model()),
		attribute.String("decision.domain", string(d)),
		attribute.Int("prompt.bytes", len(prompt)),
	))
	defer span.End()

	start := e.now()
	raw, err := e.model.Complete(ctx, prompt)
	dur := e.now().Sub(start)
	observability.Current().ObserveModelCall(e.model.Name(), callType, err == nil, dur)

	entry := &decisions.ModelCallLog{
		ID:            uuid.New(),
		ApplicationID: appID,
		Domain:        d,
		CallType:      callType,
		Engine:        e.model.Name(),
		Model:         e.model.Model(),
		Prompt:        prompt,
		Response:      raw,
		Success:       err == nil,
		DurationMS:    dur.Milliseconds(),
		TraceID:       traceID(ctx),
		CreatedAt:     e.now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		e.log.Warn("model call failed", "call_type", callType, "domain", d, "duration_ms", dur.Milliseconds(), "timeout", engine.IsTimeout(err), "error", err)
	} else {
		span.SetAttributes(attribute.Int("response.bytes", len(raw)))
	}
	if e.calls != nil {
		if logErr := e.calls.Create(dbctx.From(ctx), entry); logErr != nil {
			e.log.Warn("model call log write failed", "error", logErr)
		}
	}
	return raw, dur, err
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		return td.TraceID
	}
	return ""
}
