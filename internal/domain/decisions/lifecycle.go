package decisions

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"gorm.io/datatypes"
)

// Lifecycle is a read-only view of a record that carries only the fields
// valid in its state. Obtain it with Application.Lifecycle.
type Lifecycle interface {
	State() Status
	sealed()
}

type PendingAI struct {
	SubmittedAt time.Time
}

// PendingHuman holds exactly one of AI or Failure. A parse failure carries
// both: the fallback result and the raw model text.
type PendingHuman struct {
	AI      *AIResult
	Failure *AIFailure
}

type Completed struct {
	AI         *AIResult
	Failure    *AIFailure
	Final      Outcome
	Comment    string
	ReviewedBy string
	ReviewedAt time.Time
	IsOverride bool
	Override   *OverrideExplanation
}

func (PendingAI) State() Status    { return StatusPendingAI }
func (PendingHuman) State() Status { return StatusPendingHuman }
func (Completed) State() Status    { return StatusCompleted }

func (PendingAI) sealed()    {}
func (PendingHuman) sealed() {}
func (Completed) sealed()    {}

// Lifecycle decodes the record into its state view, rejecting combinations
// the transitions below can never produce.
func (a *Application) Lifecycle() (Lifecycle, error) {
	const op = "decisions.Lifecycle"
	ai, err := a.AI()
	if err != nil {
		return nil, aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
	failure, err := a.Failure()
	if err != nil {
		return nil, aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
	switch a.Status {
	case StatusPendingAI:
		if ai != nil || failure != nil || a.FinalDecision != nil {
			return nil, corrupt(op, a, "pending_ai record carries stage output")
		}
		return PendingAI{SubmittedAt: a.CreatedAt}, nil
	case StatusPendingHuman:
		if ai == nil && failure == nil {
			return nil, corrupt(op, a, "pending_human record has neither result nor failure")
		}
		if a.FinalDecision != nil {
			return nil, corrupt(op, a, "pending_human record has a final decision")
		}
		return PendingHuman{AI: ai, Failure: failure}, nil
	case StatusCompleted:
		if a.FinalDecision == nil || a.ReviewedAt == nil {
			return nil, corrupt(op, a, "completed record without a final decision")
		}
		override, err := a.Override()
		if err != nil {
			return nil, aggregates.Wrap(aggregates.CodeInternal, op, err)
		}
		return Completed{
			AI:         ai,
			Failure:    failure,
			Final:      *a.FinalDecision,
			Comment:    a.ReviewerComment,
			ReviewedBy: a.ReviewedBy,
			ReviewedAt: *a.ReviewedAt,
			IsOverride: a.IsOverride,
			Override:   override,
		}, nil
	default:
		return nil, corrupt(op, a, "unknown status "+string(a.Status))
	}
}

func corrupt(op string, a *Application, msg string) error {
	return aggregates.NewError(aggregates.CodeInternal, op, a.ID.String()+": "+msg, nil)
}

func invalidState(op string, a *Application, want ...Status) error {
	names := make([]string, 0, len(want))
	for _, s := range want {
		names = append(names, string(s))
	}
	return aggregates.NewError(
		aggregates.CodeInvalidState,
		op,
		"application "+a.ID.String()+" is "+string(a.Status)+"; requires "+strings.Join(names, " or "),
		ErrInvalidState,
	)
}

func validation(op, msg string) error {
	return aggregates.NewError(aggregates.CodeValidation, op, msg, ErrValidation)
}

// NewApplication creates a pending_ai record. fields must already have
// passed schema validation.
func NewApplication(domain Domain, fields map[string]any, now time.Time) (*Application, error) {
	const op = "decisions.NewApplication"
	if _, ok := ParseDomain(string(domain)); !ok {
		return nil, validation(op, "unknown domain "+string(domain))
	}
	if len(fields) == 0 {
		return nil, validation(op, "applicant data is empty")
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, validation(op, "applicant data is not serializable: "+err.Error())
	}
	now = now.UTC()
	return &Application{
		ID:        uuid.New(),
		Domain:    domain,
		Data:      datatypes.JSON(raw),
		Status:    StatusPendingAI,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteAI records the model result and moves the record to pending_human.
// A parse failure passes the fallback result together with a failure note.
func (a *Application) CompleteAI(res AIResult, failure *AIFailure, now time.Time) error {
	const op = "decisions.CompleteAI"
	if a.Status != StatusPendingAI {
		return invalidState(op, a, StatusPendingAI)
	}
	if _, ok := ParseOutcome(string(res.Decision.Status)); !ok {
		res.Decision.Status = OutcomeRejected
		res.RequiresReview = true
	}
	res.Decision.Confidence = clamp01(res.Decision.Confidence)
	if res.Counterfactuals == nil {
		res.Counterfactuals = []string{}
	}
	if failure != nil {
		res.RequiresReview = true
	}
	rawRes, err := encodeOptional(&res)
	if err != nil {
		return aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
	rawFailure, err := encodeOptional(failure)
	if err != nil {
		return aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
	a.AIResult = rawRes
	a.AIFailure = rawFailure
	a.Status = StatusPendingHuman
	a.UpdatedAt = now.UTC()
	return nil
}

// FailAI moves the record to pending_human without a result, e.g. when the
// model could not be reached.
func (a *Application) FailAI(failure AIFailure, now time.Time) error {
	const op = "decisions.FailAI"
	if a.Status != StatusPendingAI {
		return invalidState(op, a, StatusPendingAI)
	}
	if strings.TrimSpace(failure.Kind) == "" {
		return validation(op, "failure kind is required")
	}
	if failure.OccurredAt.IsZero() {
		failure.OccurredAt = now.UTC()
	}
	raw, err := encodeOptional(&failure)
	if err != nil {
		return aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
	a.AIFailure = raw
	a.Status = StatusPendingHuman
	a.UpdatedAt = now.UTC()
	return nil
}

// WouldOverride reports whether decision disagrees with the model's
// recommendation. Records without a model result never count as overrides.
func (a *Application) WouldOverride(decision Outcome) (bool, error) {
	res, err := a.AI()
	if err != nil {
		return false, aggregates.Wrap(aggregates.CodeInternal, "decisions.WouldOverride", err)
	}
	return isOverride(res, decision), nil
}

func isOverride(res *AIResult, decision Outcome) bool {
	if res == nil {
		return false
	}
	return !strings.EqualFold(string(res.Decision.Status), string(decision))
}

// CanReview fails with invalid_state unless the record awaits a reviewer.
func (a *Application) CanReview() error {
	if a.Status != StatusPendingHuman {
		return invalidState("decisions.Review", a, StatusPendingHuman)
	}
	return nil
}

type ReviewInput struct {
	Decision Outcome
	Comment  string
	Reviewer string
	// Override is required when the decision disagrees with the model and
	// ignored otherwise.
	Override *OverrideExplanation
}

// Review applies the terminal human disposition.
func (a *Application) Review(in ReviewInput, now time.Time) error {
	const op = "decisions.Review"
	if err := a.CanReview(); err != nil {
		return err
	}
	decision, ok := ParseOutcome(string(in.Decision))
	if !ok {
		return validation(op, "decision must be approved or rejected")
	}
	override, err := a.WouldOverride(decision)
	if err != nil {
		return err
	}
	var rawOverride datatypes.JSON
	if override {
		if in.Override == nil {
			return validation(op, "override explanation is required when the decision differs from the AI recommendation")
		}
		if rawOverride, err = encodeOptional(in.Override); err != nil {
			return aggregates.Wrap(aggregates.CodeInternal, op, err)
		}
	}
	ts := now.UTC()
	a.FinalDecision = &decision
	a.ReviewerComment = strings.TrimSpace(in.Comment)
	a.ReviewedBy = strings.TrimSpace(in.Reviewer)
	a.ReviewedAt = &ts
	a.IsOverride = override
	a.OverrideExplanation = rawOverride
	a.Status = StatusCompleted
	a.UpdatedAt = ts
	return nil
}

// EditExplanation replaces the displayed reasoning. The stored model result
// is left untouched.
func (a *Application) EditExplanation(text string, now time.Time) error {
	const op = "decisions.EditExplanation"
	if a.Status != StatusPendingHuman && a.Status != StatusCompleted {
		return invalidState(op, a, StatusPendingHuman, StatusCompleted)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return validation(op, "explanation must not be empty")
	}
	ts := now.UTC()
	a.AgentExplanation = text
	a.ExplanationEdited = true
	a.ExplanationEditedAt = &ts
	a.UpdatedAt = ts
	return nil
}
