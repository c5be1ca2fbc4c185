package rules

import (
	"strings"
	"testing"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

func TestEvaluateLoan(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]any
		want   decisions.Outcome
	}{
		{"strong", map[string]any{"monthly_income": 12000.0, "credit_score": 750.0, "loan_amount": 50000.0}, decisions.OutcomeApproved},
		{"weak", map[string]any{"monthly_income": 1500.0, "credit_score": 520.0, "loan_amount": 200000.0}, decisions.OutcomeRejected},
		{"no income", map[string]any{"credit_score": 610.0, "loan_amount": 10000.0}, decisions.OutcomeRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(decisions.DomainLoan, tc.fields)
			if res.Decision.Status != tc.want {
				t.Fatalf("status: got %s want %s (%s)", res.Decision.Status, tc.want, res.Decision.Reasoning)
			}
			if res.Decision.Confidence < 0 || res.Decision.Confidence > maxConfidence {
				t.Fatalf("confidence out of range: %v", res.Decision.Confidence)
			}
			if res.Audit.Engine != EngineName {
				t.Fatalf("engine: %q", res.Audit.Engine)
			}
		})
	}
}

func TestEvaluateStrongLoanScore(t *testing.T) {
	res := Evaluate(decisions.DomainLoan, map[string]any{"monthly_income": 12000.0, "credit_score": 750.0, "loan_amount": 50000.0})
	// 50 + 20 (income) + 25 (credit)
	if !strings.Contains(res.Decision.Reasoning, "Risk score: 95/100") {
		t.Fatalf("reasoning: %s", res.Decision.Reasoning)
	}
	if res.Decision.Confidence != 0.95 {
		t.Fatalf("confidence: %v", res.Decision.Confidence)
	}
	if !strings.Contains(res.Decision.Reasoning, "RM144,000") {
		t.Fatalf("expected formatted annual income: %s", res.Decision.Reasoning)
	}
	if res.KeyMetrics == nil || *res.KeyMetrics.RiskScore != 5 {
		t.Fatalf("key metrics: %+v", res.KeyMetrics)
	}
}

func TestEvaluateRejectedHasSteps(t *testing.T) {
	res := Evaluate(decisions.DomainLoan, map[string]any{"monthly_income": 1500.0, "credit_score": 520.0, "loan_amount": 200000.0})
	if len(res.Counterfactuals) == 0 || len(res.Counterfactuals) > 5 {
		t.Fatalf("counterfactuals: %v", res.Counterfactuals)
	}
	for i, cf := range res.Counterfactuals {
		if !strings.HasPrefix(cf, "Step ") {
			t.Fatalf("step %d missing prefix: %q", i, cf)
		}
	}
}

func TestEvaluateJobJunior(t *testing.T) {
	res := Evaluate(decisions.DomainJob, map[string]any{"experience": 1.0, "skills_match": 50.0})
	if res.Decision.Status != decisions.OutcomeRejected {
		t.Fatalf("status: %s", res.Decision.Status)
	}
	if len(res.Counterfactuals) != 1 || !strings.HasPrefix(res.Counterfactuals[0], "Step 1: ") {
		t.Fatalf("counterfactuals: %v", res.Counterfactuals)
	}
}

func TestEvaluateAlternativeIsOpposite(t *testing.T) {
	for _, d := range decisions.Domains() {
		res := Evaluate(d, map[string]any{})
		if res.Alternative == nil {
			t.Fatalf("%s: missing alternative", d)
		}
		if res.Alternative.Outcome != res.Decision.Status.Opposite() {
			t.Fatalf("%s: alternative %s for decision %s", d, res.Alternative.Outcome, res.Decision.Status)
		}
		if res.Alternative.Reasoning == "" || len(res.Alternative.Counterfactuals) == 0 {
			t.Fatalf("%s: empty alternative", d)
		}
	}
}

func TestEvaluateInsuranceClaims(t *testing.T) {
	clean := Evaluate(decisions.DomainInsurance, map[string]any{"age": 25.0, "claims": 0.0})
	if clean.Decision.Status != decisions.OutcomeApproved {
		t.Fatalf("clean: %s", clean.Decision.Status)
	}
	risky := Evaluate(decisions.DomainInsurance, map[string]any{"age": 65.0, "claims": 4.0, "premium": 800.0})
	if risky.Decision.Status != decisions.OutcomeRejected {
		t.Fatalf("risky: %s", risky.Decision.Status)
	}
}

func TestEvaluateCreditUnemployed(t *testing.T) {
	res := Evaluate(decisions.DomainCredit, map[string]any{"annual_income": 40000.0, "employment_status": "Unemployed", "age": 22.0})
	if res.Decision.Status != decisions.OutcomeRejected {
		t.Fatalf("status: %s", res.Decision.Status)
	}
	if res.Fairness.Assessment != "Fair" {
		t.Fatalf("fairness: %+v", res.Fairness)
	}
}
