package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/ingest"
)

func TestDeleteUnknownPolicy(t *testing.T) {
	h := newHarness(t, nil, true)
	ctx := context.Background()
	kept, err := h.policies.Add(ctx, "loan", "Debt service ratio under 60%.")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	err = h.policies.Delete(ctx, "loan", uuid.New())
	if !aggregates.IsCode(err, aggregates.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	// right id, wrong domain
	if err := h.policies.Delete(ctx, "job", kept.ID); !aggregates.IsCode(err, aggregates.CodeNotFound) {
		t.Fatalf("expected not_found across domains, got %v", err)
	}
	list, _ := h.policies.List(ctx, "loan")
	if len(list) != 1 || list[0].ID != kept.ID {
		t.Fatalf("store changed: %+v", list)
	}

	if err := h.policies.Delete(ctx, "loan", kept.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list, _ := h.policies.List(ctx, "loan"); len(list) != 0 {
		t.Fatalf("not deleted: %+v", list)
	}
}

func TestPolicyValidation(t *testing.T) {
	h := newHarness(t, nil, true)
	ctx := context.Background()
	if _, err := h.policies.Add(ctx, "pets", "x"); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("domain: %v", err)
	}
	if _, err := h.policies.Add(ctx, "loan", "  "); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("text: %v", err)
	}
}

func TestPolicyUploadAndList(t *testing.T) {
	h := newHarness(t, nil, true)
	ctx := context.Background()
	if _, err := h.policies.Add(ctx, "global", "Treat applicants equally."); err != nil {
		t.Fatalf("Add: %v", err)
	}
	created, err := h.policies.Upload(ctx, "credit", ingest.FormatTXT, []byte("Limit starts at RM2000.\n\nNo limit above 3x monthly income.\n"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created=%d", len(created))
	}

	list, err := h.policies.List(ctx, "credit")
	if err != nil || len(list) != 3 || list[0].Text != "Treat applicants equally." {
		t.Fatalf("list=%+v err=%v", list, err)
	}
	all, _ := h.policies.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("all=%d", len(all))
	}

	if _, err := h.policies.Upload(ctx, "credit", ingest.FormatCSV, []byte("text\nx\n")); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("csv without policy column: %v", err)
	}
	if list, _ := h.policies.List(ctx, "credit"); len(list) != 3 {
		t.Fatalf("failed upload must not write: %d", len(list))
	}
}
