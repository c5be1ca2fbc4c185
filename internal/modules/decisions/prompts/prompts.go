package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

// PriorSnippetLen caps how much of each prior decision's reasoning is
// replayed into a new prompt.
const PriorSnippetLen = 400

type PriorDecision struct {
	Outcome   decisions.Outcome
	Reasoning string
}

// Input is everything a decision prompt depends on. Policies are already
// ordered (global entries first).
type Input struct {
	Domain    decisions.Domain
	Applicant map[string]any
	Policies  []string
	Prior     []PriorDecision
}

type OverrideInput struct {
	Domain           decisions.Domain
	Applicant        map[string]any
	AIRecommendation decisions.Outcome
	Decision         decisions.Outcome
	Comment          string
}

const decisionTmpl = `You are a {{.Domain}} decision engine. Output JSON only.
Evaluate this application and decide APPROVED or REJECTED. No other status value is allowed.

APPLICANT DATA:
{{range .Fields}}{{.Key}}: {{.Value}}
{{end}}{{if .Policies}}
APPLICABLE POLICIES AND RULES (binding, apply all of them):
{{range $i, $p := .Policies}}{{inc $i}}. {{$p}}
{{end}}{{end}}{{if .Prior}}
RECENT SIMILAR DECISIONS (context only, do not copy):
{{range $i, $p := .Prior}}{{inc $i}}. {{$p.Outcome}}: {{$p.Reasoning}}
{{end}}{{end}}
OUTPUT FORMAT (strict JSON, no prose, no markdown):
{"decision":{"status":"APPROVED|REJECTED","confidence":0.0-1.0,"reasoning":"2-3 sentence explanation"},"counterfactuals":["Step 1: ...","Step 2: ...","Step 3: ..."],"fairness":{"assessment":"Fair|Unfair","concerns":["..."]},"key_metrics":{"risk_score":0-100,"approval_probability":0.0-1.0,"critical_factors":["f1","f2"]}}

RULES:
- "status" must be exactly APPROVED or REJECTED.
- "confidence" must be a number between 0 and 1.
- If REJECTED, list 3 actionable counterfactual steps. If APPROVED, counterfactuals may be empty.
- Do not use protected attributes (race, religion, gender, ethnicity) in the decision.`

const overrideTmpl = `You are an explainable decision system. A human reviewer overrode your recommendation.
You MUST output JSON only.

CONTEXT:
- Application Type: {{.Domain}}
- AI Recommendation: {{.AIRecommendation}}
- Reviewer's Final Decision: {{.Decision}}
- Reviewer's Comment: {{if .Comment}}{{.Comment}}{{else}}None provided{{end}}

APPLICANT DATA:
{{range .Fields}}{{.Key}}: {{.Value}}
{{end}}
TASK:
Write a customer-friendly explanation of the reviewer's decision: a summary, the reasoning behind it, next steps for the customer, and any conditions attached.

OUTPUT (strict JSON only):
{"summary":"...","detailed_reasoning":"...","next_steps":["..."],"conditions":["..."],"override_context":"why the human decision differed from the AI recommendation"}`

var funcs = template.FuncMap{"inc": func(i int) int { return i + 1 }}

var (
	decisionT = template.Must(template.New("decision").Funcs(funcs).Option("missingkey=zero").Parse(decisionTmpl))
	overrideT = template.Must(template.New("override").Funcs(funcs).Option("missingkey=zero").Parse(overrideTmpl))
)

type Field struct {
	Key   string
	Value string
}

// Build renders the decision prompt. It is a pure function of in.
func Build(in Input) string {
	policies := make([]string, 0, len(in.Policies))
	for _, p := range in.Policies {
		if p = strings.TrimSpace(p); p != "" {
			policies = append(policies, p)
		}
	}
	prior := make([]PriorDecision, 0, len(in.Prior))
	for _, p := range in.Prior {
		prior = append(prior, PriorDecision{
			Outcome:   decisions.Outcome(p.Outcome.Upper()),
			Reasoning: Truncate(oneLine(p.Reasoning), PriorSnippetLen),
		})
	}
	return render(decisionT, map[string]any{
		"Domain":   string(in.Domain),
		"Fields":   Fields(in.Applicant),
		"Policies": policies,
		"Prior":    prior,
	})
}

// BuildOverride renders the prompt asking the model to justify a reviewer's
// disagreeing decision.
func BuildOverride(in OverrideInput) string {
	return render(overrideT, map[string]any{
		"Domain":           string(in.Domain),
		"AIRecommendation": in.AIRecommendation.Upper(),
		"Decision":         in.Decision.Upper(),
		"Comment":          strings.TrimSpace(in.Comment),
		"Fields":           Fields(in.Applicant),
	})
}

func render(t *template.Template, data any) string {
	var b bytes.Buffer
	_ = t.Execute(&b, data)
	return strings.TrimSpace(b.String())
}

// Fields lists applicant fields sorted by key with values rendered as text,
// so identical applicants always produce identical prompts.
func Fields(applicant map[string]any) []Field {
	keys := make([]string, 0, len(applicant))
	for k := range applicant {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Key: k, Value: FormatValue(applicant[k])})
	}
	return out
}

func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		return oneLine(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
