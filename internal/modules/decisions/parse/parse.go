package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

// ErrParseFailure marks model output with no recoverable decision.
var ErrParseFailure = errors.New("model output could not be parsed")

const (
	PlaceholderReasoning = "Automated analysis unavailable - pending manual review."
	NeutralConfidence    = 0.5
	MaxCounterfactuals   = 5
)

type FailureReason string

const (
	ReasonEmpty      FailureReason = "empty_output"
	ReasonNoObject   FailureReason = "no_json_object"
	ReasonNoDecision FailureReason = "no_decision_fields"
)

// Failure describes output that could not be validated. Raw is kept for
// the audit trail.
type Failure struct {
	Reason FailureReason
	Raw    string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", ErrParseFailure.Error(), f.Reason)
}

func (f *Failure) Unwrap() error { return ErrParseFailure }

// Parsed is either a validated result or a failure, never both.
type Parsed struct {
	Result  *decisions.AIResult
	Failure *Failure
}

func (p Parsed) OK() bool { return p.Result != nil }

// Decision validates raw model text into an AIResult. It never panics and
// never returns a partially validated result: fields that fail validation
// are replaced by their documented defaults and flagged.
func Decision(raw string) Parsed {
	if strings.TrimSpace(raw) == "" {
		return Parsed{Failure: &Failure{Reason: ReasonEmpty, Raw: raw}}
	}
	obj, ok := FindObject(raw, isDecisionObject)
	if !ok {
		return Parsed{Failure: &Failure{Reason: ReasonNoObject, Raw: raw}}
	}
	if !isDecisionObject(obj) {
		return Parsed{Failure: &Failure{Reason: ReasonNoDecision, Raw: raw}}
	}
	res := validate(obj)
	return Parsed{Result: &res}
}

// Fallback is the conservative result recorded for a parse failure.
func Fallback() decisions.AIResult {
	return decisions.AIResult{
		Decision: decisions.Decision{
			Status:     decisions.OutcomeRejected,
			Confidence: NeutralConfidence,
			Reasoning:  PlaceholderReasoning,
		},
		Counterfactuals: []string{
			"Step 1: Ensure all application fields are filled correctly.",
			"Step 2: Verify income and employment details.",
			"Step 3: Contact support for manual review.",
		},
		Fairness:       decisions.Fairness{Assessment: "Unknown", Concerns: []string{"Processing error"}},
		LowConfidence:  true,
		RequiresReview: true,
		ParseFailed:    true,
	}
}

func decisionBlock(obj map[string]any) map[string]any {
	switch d := obj["decision"].(type) {
	case map[string]any:
		return d
	case string:
		// {"decision":"APPROVED","confidence":...}
		flat := map[string]any{"status": d}
		for _, k := range []string{"confidence", "reasoning"} {
			if v, ok := obj[k]; ok {
				flat[k] = v
			}
		}
		return flat
	}
	// flat shape: {"status":..., "confidence":..., "reasoning":...}
	return obj
}

func isDecisionObject(obj map[string]any) bool {
	block := decisionBlock(obj)
	for _, k := range []string{"status", "confidence", "reasoning"} {
		if _, ok := block[k]; ok {
			return true
		}
	}
	return false
}

func validate(obj map[string]any) decisions.AIResult {
	block := decisionBlock(obj)
	var res decisions.AIResult

	status, known := Status(block["status"])
	res.Decision.Status = status
	if !known {
		res.RequiresReview = true
	}

	conf, exact := Confidence(block["confidence"])
	res.Decision.Confidence = conf
	if !exact {
		res.LowConfidence = true
	}

	reasoning := strings.TrimSpace(stringOf(block["reasoning"]))
	if reasoning == "" {
		reasoning = PlaceholderReasoning
	}
	res.Decision.Reasoning = reasoning

	cf, ok := obj["counterfactuals"]
	if !ok {
		cf = block["counterfactuals"]
	}
	res.Counterfactuals = NormalizeCounterfactuals(cf)

	res.Fairness = fairness(obj["fairness"])
	res.KeyMetrics = keyMetrics(obj["key_metrics"])
	return res
}

// Status maps a model label onto the closed outcome set. Unrecognized
// labels fall back to rejected with known=false.
func Status(v any) (decisions.Outcome, bool) {
	s := strings.ToLower(strings.TrimSpace(stringOf(v)))
	switch s {
	case "approved", "approve", "accepted", "accept":
		return decisions.OutcomeApproved, true
	case "rejected", "reject", "denied", "deny", "declined", "decline":
		return decisions.OutcomeRejected, true
	default:
		return decisions.OutcomeRejected, false
	}
}

// Confidence coerces v into [0,1]. exact is false when the value had to be
// clamped or defaulted.
func Confidence(v any) (float64, bool) {
	var (
		f       float64
		percent bool
	)
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if strings.HasSuffix(s, "%") {
			percent = true
			s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NeutralConfidence, false
		}
		f = n
	default:
		return NeutralConfidence, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NeutralConfidence, false
	}
	if percent {
		f = f / 100
	}
	switch {
	case f < 0:
		return 0, false
	case f > 1:
		return 1, false
	default:
		return f, true
	}
}

var cfSplit = regexp.MustCompile(`[\n;]+`)

// NormalizeCounterfactuals accepts a list or a single packed string and
// returns at most MaxCounterfactuals "Step N:" items, never nil.
func NormalizeCounterfactuals(v any) []string {
	var candidates []string
	switch t := v.(type) {
	case string:
		for _, part := range cfSplit.Split(t, -1) {
			candidates = append(candidates, strings.TrimSpace(part))
		}
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				item = firstString(m, "step", "text", "action", "suggestion")
			}
			candidates = append(candidates, strings.TrimSpace(stringOf(item)))
		}
	case []string:
		for _, s := range t {
			candidates = append(candidates, strings.TrimSpace(s))
		}
	}
	out := []string{}
	for _, text := range candidates {
		if text == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(text), "step ") {
			text = fmt.Sprintf("Step %d: %s", len(out)+1, text)
		}
		out = append(out, text)
		if len(out) >= MaxCounterfactuals {
			break
		}
	}
	return out
}

func fairness(v any) decisions.Fairness {
	f := decisions.Fairness{Assessment: "Unknown", Concerns: []string{}}
	switch t := v.(type) {
	case map[string]any:
		if a := strings.TrimSpace(stringOf(t["assessment"])); a != "" {
			f.Assessment = a
		}
		f.Concerns = stringList(t["concerns"])
	case string:
		if s := strings.TrimSpace(t); s != "" {
			f.Assessment = s
		}
	}
	return f
}

func keyMetrics(v any) *decisions.KeyMetrics {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := &decisions.KeyMetrics{CriticalFactors: stringList(m["critical_factors"])}
	if n, ok := number(m["risk_score"]); ok {
		n = math.Max(0, math.Min(100, n))
		out.RiskScore = &n
	}
	if n, ok := number(m["approval_probability"]); ok {
		n = math.Max(0, math.Min(1, n))
		out.ApprovalProbability = &n
	}
	return out
}

// Override validates the override-justification output. ok is false when
// no usable summary or reasoning was produced.
func Override(raw string) (*decisions.OverrideExplanation, bool) {
	obj, found := FindObject(raw, func(m map[string]any) bool {
		_, a := m["summary"]
		_, b := m["detailed_reasoning"]
		return a || b
	})
	if !found {
		return nil, false
	}
	out := &decisions.OverrideExplanation{
		Summary:           strings.TrimSpace(stringOf(obj["summary"])),
		DetailedReasoning: strings.TrimSpace(stringOf(obj["detailed_reasoning"])),
		NextSteps:         stringList(obj["next_steps"]),
		Conditions:        stringList(obj["conditions"]),
		OverrideContext:   strings.TrimSpace(stringOf(obj["override_context"])),
		Source:            decisions.OverrideSourceModel,
	}
	if out.Summary == "" && out.DetailedReasoning == "" {
		return nil, false
	}
	if out.Summary == "" {
		out.Summary = out.DetailedReasoning
	}
	return out, true
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range cfSplit.Split(t, -1) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(stringOf(item)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringOf(m[k])); s != "" {
			return s
		}
	}
	return ""
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
