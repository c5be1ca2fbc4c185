package services

import (
	"testing"

	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

const rejectJSON = `Here is my analysis:
{"decision":{"status":"rejected","confidence":0.82,"reasoning":"Credit score is below the lending threshold."},
 "counterfactuals":["Increase credit score by 50 points"],
 "fairness":{"assessment":"Fair","concerns":[]}}
Thanks.`

const overrideJSON = `{"summary":"Approved as a manual exception.","detailed_reasoning":"Stable employment offsets the credit score.","next_steps":["Sign the loan agreement"],"conditions":["Quarterly income review"],"override_context":"Reviewer weighed employment history."}`

type harness struct {
	repos    repos.Repos
	engine   DecisionEngine
	apps     ApplicationService
	policies PolicyService
}

func newHarness(t *testing.T, model engine.Engine, fast bool) *harness {
	t.Helper()
	schemas, err := decisions.DefaultSchemas()
	if err != nil {
		t.Fatalf("DefaultSchemas: %v", err)
	}
	log := logger.Nop()
	r := repos.NewMemory()
	eng := NewDecisionEngine(log, model, NewMemoryCache(100, 0), r, DecisionEngineConfig{FastMode: fast, HistoryLimit: 3})
	return &harness{
		repos:    r,
		engine:   eng,
		apps:     NewApplicationService(log, r, schemas, eng),
		policies: NewPolicyService(log, r.Policies, nil),
	}
}

func loanApplicant() map[string]any {
	return map[string]any{"credit_score": 550, "loan_amount": "50,000", "Monthly Income": 4000, "employment_status": "employed"}
}
