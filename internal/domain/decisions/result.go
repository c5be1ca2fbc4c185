package decisions

import "time"

// Decision is the model's categorical recommendation.
type Decision struct {
	Status     Outcome `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type Fairness struct {
	Assessment string   `json:"assessment"`
	Concerns   []string `json:"concerns"`
}

type KeyMetrics struct {
	RiskScore           *float64 `json:"risk_score,omitempty"`
	ApprovalProbability *float64 `json:"approval_probability,omitempty"`
	CriticalFactors     []string `json:"critical_factors,omitempty"`
}

// Alternative is reasoning prepared ahead of time for the opposite outcome,
// used when a reviewer overrides the recommendation.
type Alternative struct {
	Outcome         Outcome  `json:"outcome"`
	Reasoning       string   `json:"reasoning"`
	Counterfactuals []string `json:"counterfactuals"`
}

type ResultAudit struct {
	Engine      string    `json:"engine"`
	Model       string    `json:"model,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AIResult is the validated output of the AI stage.
type AIResult struct {
	Decision        Decision     `json:"decision"`
	Counterfactuals []string     `json:"counterfactuals"`
	Fairness        Fairness     `json:"fairness"`
	KeyMetrics      *KeyMetrics  `json:"key_metrics,omitempty"`
	Alternative     *Alternative `json:"alternative,omitempty"`

	LowConfidence  bool `json:"low_confidence,omitempty"`
	RequiresReview bool `json:"requires_review,omitempty"`
	ParseFailed    bool `json:"parse_failed,omitempty"`

	Audit ResultAudit `json:"audit"`
}

// AIFailure explains why a record reached pending_human without a usable
// model result.
type AIFailure struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	RawOutput  string    `json:"raw_output,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	OverrideSourcePregenerated = "pregenerated"
	OverrideSourceModel        = "model"
	OverrideSourceFallback     = "fallback"
)

// OverrideExplanation justifies a reviewer decision that disagrees with the
// model's recommendation.
type OverrideExplanation struct {
	Summary           string   `json:"summary"`
	DetailedReasoning string   `json:"detailed_reasoning"`
	NextSteps         []string `json:"next_steps"`
	Conditions        []string `json:"conditions"`
	OverrideContext   string   `json:"override_context"`
	Source            string   `json:"source"`
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0.5
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
