package decisions

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

func appRepos() map[string]func(t *testing.T) ApplicationRepo {
	return map[string]func(t *testing.T) ApplicationRepo{
		"memory": func(*testing.T) ApplicationRepo { return NewMemoryApplicationRepo() },
		"gorm": func(t *testing.T) ApplicationRepo {
			return NewApplicationRepo(testutil.DB(t), testutil.Logger(t))
		},
	}
}

func newApp(t *testing.T, domain types.Domain, at time.Time) *types.Application {
	t.Helper()
	app, err := types.NewApplication(domain, map[string]any{"credit_score": 640.0, "loan_amount": 1000.0}, at)
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	return app
}

func TestApplicationRepo_CreateGetList(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, mk := range appRepos() {
		t.Run(name, func(t *testing.T) {
			repo := mk(t)
			dbc := testutil.DBC()
			a := newApp(t, types.DomainLoan, base)
			b := newApp(t, types.DomainCredit, base.Add(time.Minute))
			for _, app := range []*types.Application{a, b} {
				if err := repo.Create(dbc, app); err != nil {
					t.Fatalf("Create: %v", err)
				}
			}

			got, err := repo.GetByID(dbc, a.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if got.Domain != types.DomainLoan || got.Status != types.StatusPendingAI {
				t.Fatalf("GetByID: got domain=%q status=%q", got.Domain, got.Status)
			}

			_, err = repo.GetByID(dbc, uuid.New())
			if !domainagg.IsCode(err, domainagg.CodeNotFound) {
				t.Fatalf("unknown id: want not_found got %v", err)
			}

			all, err := repo.List(dbc, ApplicationFilter{})
			if err != nil || len(all) != 2 {
				t.Fatalf("List: err=%v len=%d", err, len(all))
			}
			if all[0].ID != b.ID {
				t.Fatalf("List: want newest first")
			}
			loans, err := repo.List(dbc, ApplicationFilter{Domain: types.DomainLoan})
			if err != nil || len(loans) != 1 || loans[0].ID != a.ID {
				t.Fatalf("List(domain): err=%v got=%v", err, loans)
			}
		})
	}
}

func TestApplicationRepo_UpdateGuarded(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, mk := range appRepos() {
		t.Run(name, func(t *testing.T) {
			repo := mk(t)
			dbc := testutil.DBC()
			app := newApp(t, types.DomainLoan, base)
			if err := repo.Create(dbc, app); err != nil {
				t.Fatalf("Create: %v", err)
			}

			first := app.Clone()
			res := types.AIResult{Decision: types.Decision{Status: types.OutcomeRejected, Confidence: 0.8, Reasoning: "r"}}
			if err := first.CompleteAI(res, nil, base.Add(time.Second)); err != nil {
				t.Fatalf("CompleteAI: %v", err)
			}
			ok, err := repo.UpdateGuarded(dbc, first, types.StatusPendingAI)
			if err != nil || !ok {
				t.Fatalf("UpdateGuarded: ok=%v err=%v", ok, err)
			}

			// a second writer that also started from pending_ai must lose
			second := app.Clone()
			if err := second.FailAI(types.AIFailure{Kind: types.FailureModelUnavailable}, base); err != nil {
				t.Fatalf("FailAI: %v", err)
			}
			ok, err = repo.UpdateGuarded(dbc, second, types.StatusPendingAI)
			if err != nil || ok {
				t.Fatalf("stale UpdateGuarded: want ok=false got ok=%v err=%v", ok, err)
			}

			stored, err := repo.GetByID(dbc, app.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if stored.Status != types.StatusPendingHuman {
				t.Fatalf("status: got=%q", stored.Status)
			}
			fail, _ := stored.Failure()
			if fail != nil {
				t.Fatalf("losing write leaked into the record: %+v", fail)
			}
			ai, _ := stored.AI()
			if ai == nil || ai.Decision.Status != types.OutcomeRejected {
				t.Fatalf("ai_result: got %+v", ai)
			}

			counts, err := repo.CountByStatus(dbc)
			if err != nil || counts[types.StatusPendingHuman] != 1 {
				t.Fatalf("CountByStatus: err=%v got=%v", err, counts)
			}
		})
	}
}

func TestApplicationRepo_UpdateGuardedRejectsStaleVersion(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, mk := range appRepos() {
		t.Run(name, func(t *testing.T) {
			repo := mk(t)
			dbc := testutil.DBC()
			app := newApp(t, types.DomainLoan, base)
			if err := repo.Create(dbc, app); err != nil {
				t.Fatalf("Create: %v", err)
			}
			res := types.AIResult{Decision: types.Decision{Status: types.OutcomeRejected, Confidence: 0.8, Reasoning: "r"}}
			if err := app.CompleteAI(res, nil, base); err != nil {
				t.Fatalf("CompleteAI: %v", err)
			}
			if ok, err := repo.UpdateGuarded(dbc, app, types.StatusPendingAI); err != nil || !ok || app.Version != 1 {
				t.Fatalf("UpdateGuarded: ok=%v err=%v version=%d", ok, err, app.Version)
			}

			// two writers read the same pending_human snapshot
			editor, _ := repo.GetByID(dbc, app.ID)
			reviewer, _ := repo.GetByID(dbc, app.ID)

			if err := editor.EditExplanation("Edited by staff.", base.Add(time.Minute)); err != nil {
				t.Fatalf("EditExplanation: %v", err)
			}
			if ok, err := repo.UpdateGuarded(dbc, editor, types.StatusPendingHuman); err != nil || !ok {
				t.Fatalf("edit write: ok=%v err=%v", ok, err)
			}

			if err := reviewer.Review(types.ReviewInput{Decision: types.OutcomeRejected, Reviewer: "r1"}, base.Add(2*time.Minute)); err != nil {
				t.Fatalf("Review: %v", err)
			}
			ok, err := repo.UpdateGuarded(dbc, reviewer, types.StatusPendingHuman)
			if err != nil || ok {
				t.Fatalf("stale review write: want ok=false got ok=%v err=%v", ok, err)
			}

			stored, _ := repo.GetByID(dbc, app.ID)
			if stored.Status != types.StatusPendingHuman || !stored.ExplanationEdited || stored.AgentExplanation != "Edited by staff." {
				t.Fatalf("edit lost: status=%s edited=%v text=%q", stored.Status, stored.ExplanationEdited, stored.AgentExplanation)
			}
			if stored.Version != 2 {
				t.Fatalf("version=%d", stored.Version)
			}
		})
	}
}

func TestPolicyRepo_ListDelete(t *testing.T) {
	for name, mk := range map[string]func(t *testing.T) PolicyRepo{
		"memory": func(*testing.T) PolicyRepo { return NewMemoryPolicyRepo() },
		"gorm": func(t *testing.T) PolicyRepo {
			return NewPolicyRepo(testutil.DB(t), testutil.Logger(t))
		},
	} {
		t.Run(name, func(t *testing.T) {
			repo := mk(t)
			dbc := testutil.DBC()
			now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			a, _ := types.NewPolicyEntry(types.DomainLoan, "Minimum income RM3,000/month", now)
			b, _ := types.NewPolicyEntry(types.DomainGlobal, "Never use race or religion", now.Add(time.Second))
			if err := repo.Create(dbc, []*types.PolicyEntry{a, b}); err != nil {
				t.Fatalf("Create: %v", err)
			}
			loan, err := repo.List(dbc, types.DomainLoan)
			if err != nil || len(loan) != 1 || loan[0].ID != a.ID {
				t.Fatalf("List(loan): err=%v got=%v", err, loan)
			}
			ok, err := repo.Delete(dbc, types.DomainCredit, a.ID)
			if err != nil || ok {
				t.Fatalf("Delete wrong domain: want false got ok=%v err=%v", ok, err)
			}
			ok, err = repo.Delete(dbc, types.DomainLoan, a.ID)
			if err != nil || !ok {
				t.Fatalf("Delete: ok=%v err=%v", ok, err)
			}
			all, _ := repo.List(dbc)
			if len(all) != 1 || all[0].ID != b.ID {
				t.Fatalf("after delete: got=%v", all)
			}
		})
	}
}
