package decisions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Application is the persisted record. JSON columns hold the applicant
// fields and the stage outputs; use the accessors or View to read them.
type Application struct {
	ID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Domain Domain         `gorm:"column:domain;not null;index" json:"domain"`
	Data   datatypes.JSON `gorm:"column:data;not null" json:"-"`
	Status Status         `gorm:"column:status;not null;index" json:"status"`

	AIResult  datatypes.JSON `gorm:"column:ai_result" json:"-"`
	AIFailure datatypes.JSON `gorm:"column:ai_failure" json:"-"`

	FinalDecision       *Outcome       `gorm:"column:final_decision" json:"final_decision,omitempty"`
	ReviewerComment     string         `gorm:"column:reviewer_comment" json:"reviewer_comment,omitempty"`
	ReviewedBy          string         `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	IsOverride          bool           `gorm:"column:is_override;not null;default:false" json:"is_override"`
	OverrideExplanation datatypes.JSON `gorm:"column:override_explanation" json:"-"`

	AgentExplanation    string     `gorm:"column:agent_explanation" json:"agent_explanation,omitempty"`
	ExplanationEdited   bool       `gorm:"column:explanation_edited;not null;default:false" json:"explanation_edited"`
	ExplanationEditedAt *time.Time `gorm:"column:explanation_edited_at" json:"explanation_edited_at,omitempty"`

	// Version is bumped by every guarded write.
	Version int `gorm:"column:version;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Application) TableName() string { return "application" }

func (a *Application) Fields() (map[string]any, error) {
	out := map[string]any{}
	if len(a.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(a.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AI returns the stored model result, or nil when the AI stage has not
// produced one.
func (a *Application) AI() (*AIResult, error) {
	return decodeOptional[AIResult](a.AIResult)
}

func (a *Application) Failure() (*AIFailure, error) {
	return decodeOptional[AIFailure](a.AIFailure)
}

func (a *Application) Override() (*OverrideExplanation, error) {
	return decodeOptional[OverrideExplanation](a.OverrideExplanation)
}

// Clone returns a deep copy, so in-memory stores never share slices with
// callers.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Data = cloneJSON(a.Data)
	cp.AIResult = cloneJSON(a.AIResult)
	cp.AIFailure = cloneJSON(a.AIFailure)
	cp.OverrideExplanation = cloneJSON(a.OverrideExplanation)
	if a.FinalDecision != nil {
		fd := *a.FinalDecision
		cp.FinalDecision = &fd
	}
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		cp.ReviewedAt = &t
	}
	if a.ExplanationEditedAt != nil {
		t := *a.ExplanationEditedAt
		cp.ExplanationEditedAt = &t
	}
	return &cp
}

// ApplicationView is the API shape of a record, with JSON columns decoded.
type ApplicationView struct {
	ID                  uuid.UUID            `json:"id"`
	Domain              Domain               `json:"domain"`
	Data                map[string]any       `json:"data"`
	Status              Status               `json:"status"`
	Timestamp           time.Time            `json:"timestamp"`
	AIResult            *AIResult            `json:"ai_result,omitempty"`
	AIFailure           *AIFailure           `json:"ai_failure,omitempty"`
	RequiresReview      bool                 `json:"requires_review"`
	FinalDecision       *Outcome             `json:"final_decision,omitempty"`
	ReviewerComment     string               `json:"reviewer_comment,omitempty"`
	ReviewedBy          string               `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time           `json:"reviewed_at,omitempty"`
	IsOverride          bool                 `json:"is_override"`
	OverrideExplanation *OverrideExplanation `json:"override_explanation,omitempty"`
	AgentExplanation    string               `json:"agent_explanation,omitempty"`
	ExplanationEdited   bool                 `json:"explanation_edited"`
	ExplanationEditedAt *time.Time           `json:"explanation_edited_at,omitempty"`
	DisplayedReasoning  string               `json:"displayed_reasoning,omitempty"`
}

func (a *Application) View() (ApplicationView, error) {
	v := ApplicationView{
		ID:                  a.ID,
		Domain:              a.Domain,
		Status:              a.Status,
		Timestamp:           a.CreatedAt,
		FinalDecision:       a.FinalDecision,
		ReviewerComment:     a.ReviewerComment,
		ReviewedBy:          a.ReviewedBy,
		ReviewedAt:          a.ReviewedAt,
		IsOverride:          a.IsOverride,
		AgentExplanation:    a.AgentExplanation,
		ExplanationEdited:   a.ExplanationEdited,
		ExplanationEditedAt: a.ExplanationEditedAt,
	}
	var err error
	if v.Data, err = a.Fields(); err != nil {
		return v, err
	}
	if v.AIResult, err = a.AI(); err != nil {
		return v, err
	}
	if v.AIFailure, err = a.Failure(); err != nil {
		return v, err
	}
	if v.OverrideExplanation, err = a.Override(); err != nil {
		return v, err
	}
	v.RequiresReview = v.AIFailure != nil || (v.AIResult != nil && v.AIResult.RequiresReview)
	v.DisplayedReasoning = a.DisplayedReasoning(v.AIResult)
	return v, nil
}

// DisplayedReasoning is the edited explanation when present, otherwise the
// model's reasoning.
func (a *Application) DisplayedReasoning(res *AIResult) string {
	if a.ExplanationEdited {
		return a.AgentExplanation
	}
	if res != nil {
		return res.Decision.Reasoning
	}
	return ""
}

func decodeOptional[T any](raw datatypes.JSON) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeOptional[T any](v *T) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func cloneJSON(in datatypes.JSON) datatypes.JSON {
	if in == nil {
		return nil
	}
	out := make(datatypes.JSON, len(in))
	copy(out, in)
	return out
}
