package decisions

import (
	"errors"
	"testing"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLoan(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication(DomainLoan, map[string]any{"credit_score": 550.0, "loan_amount": 50000.0}, t0)
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	return app
}

func rejectedResult() AIResult {
	return AIResult{
		Decision:        Decision{Status: OutcomeRejected, Confidence: 0.82, Reasoning: "credit score below threshold"},
		Counterfactuals: []string{"Step 1: Increase credit score by 50 points"},
	}
}

func TestNewApplicationStartsPendingAI(t *testing.T) {
	app := newLoan(t)
	if app.Status != StatusPendingAI {
		t.Fatalf("status: want=%q got=%q", StatusPendingAI, app.Status)
	}
	lc, err := app.Lifecycle()
	if err != nil {
		t.Fatalf("Lifecycle: %v", err)
	}
	if _, ok := lc.(PendingAI); !ok {
		t.Fatalf("lifecycle: want PendingAI got %T", lc)
	}
}

func TestNewApplicationRejectsEmptyData(t *testing.T) {
	_, err := NewApplication(DomainLoan, nil, t0)
	if !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("want validation got %v", err)
	}
}

func TestCompleteAIAppliesOnce(t *testing.T) {
	app := newLoan(t)
	if err := app.CompleteAI(rejectedResult(), nil, t0.Add(time.Second)); err != nil {
		t.Fatalf("CompleteAI: %v", err)
	}
	if app.Status != StatusPendingHuman {
		t.Fatalf("status: want=%q got=%q", StatusPendingHuman, app.Status)
	}
	before := string(app.AIResult)

	second := rejectedResult()
	second.Decision.Status = OutcomeApproved
	err := app.CompleteAI(second, nil, t0.Add(2*time.Second))
	if !errors.Is(err, ErrInvalidState) || !aggregates.IsCode(err, aggregates.CodeInvalidState) {
		t.Fatalf("second CompleteAI: want invalid_state got %v", err)
	}
	if string(app.AIResult) != before {
		t.Fatalf("ai_result mutated by rejected transition")
	}
}

func TestCompleteAIClampsConfidenceAndUnknownStatus(t *testing.T) {
	app := newLoan(t)
	res := AIResult{Decision: Decision{Status: "maybe", Confidence: 7}}
	if err := app.CompleteAI(res, nil, t0); err != nil {
		t.Fatalf("CompleteAI: %v", err)
	}
	got, err := app.AI()
	if err != nil || got == nil {
		t.Fatalf("AI: %v", err)
	}
	if got.Decision.Confidence != 1 {
		t.Fatalf("confidence: want=1 got=%v", got.Decision.Confidence)
	}
	if got.Decision.Status != OutcomeRejected || !got.RequiresReview {
		t.Fatalf("unknown status: want rejected+requires_review got %+v", got.Decision)
	}
	if got.Counterfactuals == nil {
		t.Fatalf("counterfactuals must never be nil")
	}
}

func TestOverrideScenario(t *testing.T) {
	app := newLoan(t)
	if err := app.CompleteAI(rejectedResult(), nil, t0); err != nil {
		t.Fatalf("CompleteAI: %v", err)
	}
	override, err := app.WouldOverride(OutcomeApproved)
	if err != nil || !override {
		t.Fatalf("WouldOverride: want true got %v (%v)", override, err)
	}

	err = app.Review(ReviewInput{Decision: OutcomeApproved, Comment: "manual exception"}, t0.Add(time.Minute))
	if !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("override without explanation: want validation got %v", err)
	}
	if app.Status != StatusPendingHuman {
		t.Fatalf("failed review must leave record unchanged")
	}

	expl := &OverrideExplanation{Summary: "approved on manual exception", Source: OverrideSourceFallback}
	if err := app.Review(ReviewInput{Decision: OutcomeApproved, Comment: "manual exception", Override: expl}, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Review: %v", err)
	}
	lc, err := app.Lifecycle()
	if err != nil {
		t.Fatalf("Lifecycle: %v", err)
	}
	done, ok := lc.(Completed)
	if !ok {
		t.Fatalf("lifecycle: want Completed got %T", lc)
	}
	if !done.IsOverride || done.Override == nil || done.Final != OutcomeApproved {
		t.Fatalf("completed: got %+v", done)
	}
	if done.Comment != "manual exception" {
		t.Fatalf("comment: got=%q", done.Comment)
	}

	err = app.Review(ReviewInput{Decision: OutcomeRejected}, t0.Add(2*time.Minute))
	if !aggregates.IsCode(err, aggregates.CodeInvalidState) {
		t.Fatalf("review on completed: want invalid_state got %v", err)
	}
	if *app.FinalDecision != OutcomeApproved {
		t.Fatalf("final decision overwritten")
	}
}

func TestReviewAgreeingDropsOverride(t *testing.T) {
	app := newLoan(t)
	_ = app.CompleteAI(rejectedResult(), nil, t0)
	err := app.Review(ReviewInput{
		Decision: "REJECTED",
		Override: &OverrideExplanation{Summary: "unused"},
	}, t0)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if app.IsOverride || app.OverrideExplanation != nil {
		t.Fatalf("agreeing review must not carry override data")
	}
}

func TestReviewOnPendingAIFails(t *testing.T) {
	app := newLoan(t)
	err := app.Review(ReviewInput{Decision: OutcomeApproved}, t0)
	if !aggregates.IsCode(err, aggregates.CodeInvalidState) {
		t.Fatalf("want invalid_state got %v", err)
	}
	if app.Status != StatusPendingAI || app.FinalDecision != nil {
		t.Fatalf("record changed by rejected review")
	}
}

func TestFailAIIsNeverAnOverride(t *testing.T) {
	app := newLoan(t)
	if err := app.FailAI(AIFailure{Kind: FailureModelUnavailable, Message: ModelUnavailableNote}, t0); err != nil {
		t.Fatalf("FailAI: %v", err)
	}
	lc, _ := app.Lifecycle()
	ph, ok := lc.(PendingHuman)
	if !ok || ph.AI != nil || ph.Failure == nil {
		t.Fatalf("lifecycle: got %#v", lc)
	}
	if err := app.Review(ReviewInput{Decision: OutcomeApproved}, t0); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if app.IsOverride {
		t.Fatalf("record without ai_result must not be an override")
	}
}

func TestEditExplanation(t *testing.T) {
	app := newLoan(t)
	if err := app.EditExplanation("new text", t0); !aggregates.IsCode(err, aggregates.CodeInvalidState) {
		t.Fatalf("edit on pending_ai: want invalid_state got %v", err)
	}
	_ = app.CompleteAI(rejectedResult(), nil, t0)
	if err := app.EditExplanation("   ", t0); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("blank edit: want validation got %v", err)
	}
	if err := app.EditExplanation("Reviewer wording", t0); err != nil {
		t.Fatalf("EditExplanation: %v", err)
	}
	if app.Status != StatusPendingHuman || !app.ExplanationEdited || app.ExplanationEditedAt == nil {
		t.Fatalf("edit flags not applied: %+v", app)
	}
	v, err := app.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.DisplayedReasoning != "Reviewer wording" {
		t.Fatalf("displayed reasoning: got=%q", v.DisplayedReasoning)
	}
	if v.AIResult.Decision.Reasoning != "credit score below threshold" {
		t.Fatalf("model reasoning must be preserved, got=%q", v.AIResult.Decision.Reasoning)
	}
}

func TestParseFailureRoutesToReview(t *testing.T) {
	app := newLoan(t)
	res := AIResult{
		Decision:    Decision{Status: OutcomeRejected, Confidence: 0.5, Reasoning: "placeholder"},
		ParseFailed: true,
	}
	failure := &AIFailure{Kind: FailureParse, Message: ParseFailureNote, RawOutput: "not json"}
	if err := app.CompleteAI(res, failure, t0); err != nil {
		t.Fatalf("CompleteAI: %v", err)
	}
	v, err := app.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !v.RequiresReview || !v.AIResult.ParseFailed || v.AIFailure.RawOutput != "not json" {
		t.Fatalf("view: got %+v", v)
	}
	if err := app.Review(ReviewInput{Decision: OutcomeRejected}, t0); err != nil {
		t.Fatalf("reviewer must still be able to decide: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	app := newLoan(t)
	cp := app.Clone()
	cp.Data[0] = 'X'
	if app.Data[0] == 'X' {
		t.Fatalf("clone shares Data buffer")
	}
}
