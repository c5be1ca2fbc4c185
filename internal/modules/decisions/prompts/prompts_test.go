package prompts

import (
	"strings"
	"testing"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

func TestBuildIsDeterministicAndComplete(t *testing.T) {
	in := Input{
		Domain:    decisions.DomainLoan,
		Applicant: map[string]any{"loan_amount": 50000.0, "credit_score": 550.0, "employment_status": "salaried"},
		Policies:  []string{"Never use protected attributes", "  ", "Minimum monthly income RM3,000"},
		Prior:     []PriorDecision{{Outcome: decisions.OutcomeRejected, Reasoning: strings.Repeat("x", 600)}},
	}
	a := Build(in)
	b := Build(in)
	if a != b {
		t.Fatalf("Build must be deterministic")
	}
	for _, want := range []string{
		"You are a loan decision engine",
		"credit_score: 550\nemployment_status: salaried\nloan_amount: 50000",
		"1. Never use protected attributes\n2. Minimum monthly income RM3,000",
		"APPROVED|REJECTED",
		`"fairness"`,
		`"counterfactuals"`,
		"1. REJECTED: " + strings.Repeat("x", PriorSnippetLen) + "\n",
	} {
		if !strings.Contains(a, want) {
			t.Fatalf("prompt missing %q:\n%s", want, a)
		}
	}
	if strings.Contains(a, strings.Repeat("x", PriorSnippetLen+1)) {
		t.Fatalf("prior reasoning not truncated")
	}
}

func TestBuildOmitsEmptySections(t *testing.T) {
	p := Build(Input{Domain: decisions.DomainJob, Applicant: map[string]any{"experience": 3.0}})
	if strings.Contains(p, "APPLICABLE POLICIES") || strings.Contains(p, "RECENT SIMILAR DECISIONS") {
		t.Fatalf("unexpected empty sections:\n%s", p)
	}
}

func TestBuildOverride(t *testing.T) {
	p := BuildOverride(OverrideInput{
		Domain:           decisions.DomainCredit,
		Applicant:        map[string]any{"annual_income": 42000.5},
		AIRecommendation: decisions.OutcomeRejected,
		Decision:         decisions.OutcomeApproved,
	})
	for _, want := range []string{"AI Recommendation: REJECTED", "Final Decision: APPROVED", "None provided", "annual_income: 42000.5", `"next_steps"`} {
		if !strings.Contains(p, want) {
			t.Fatalf("override prompt missing %q:\n%s", want, p)
		}
	}
}
