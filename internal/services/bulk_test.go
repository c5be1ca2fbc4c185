package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine/fake"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/ingest"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

func TestBulkUploadBoundsConcurrency(t *testing.T) {
	model := fake.Text(rejectJSON)
	model.Delay = 20 * time.Millisecond
	h := newHarness(t, model, false)
	bulk := NewBulkIngestService(logger.Nop(), h.apps, BulkConfig{Concurrency: 5, MaxRows: 50})

	var b strings.Builder
	b.WriteString("credit_score,loan_amount\n")
	for i := 0; i < 12; i++ {
		// distinct rows so none is served from the cache
		fmt.Fprintf(&b, "%d,%d\n", 600+i, 10000+i)
	}
	out, err := bulk.Upload(context.Background(), "loan", ingest.FormatCSV, []byte(b.String()))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.Count != 12 || len(out.Results) != 12 || out.FileType != ingest.FormatCSV {
		t.Fatalf("result=%+v", out)
	}
	for _, r := range out.Results {
		if r.ID == nil || r.Status != decisions.StatusPendingHuman || r.Error != "" {
			t.Fatalf("row %d: %+v", r.Row, r)
		}
	}
	if got := model.MaxInFlight(); got > 5 || got < 1 {
		t.Fatalf("max in flight=%d", got)
	}
	if model.Calls() != 12 {
		t.Fatalf("calls=%d", model.Calls())
	}
}

func TestBulkUploadRowsFailIndependently(t *testing.T) {
	model := fake.New(fake.Reply{Text: rejectJSON}, fake.Reply{Text: "garbage"})
	h := newHarness(t, model, false)
	bulk := NewBulkIngestService(logger.Nop(), h.apps, BulkConfig{Concurrency: 1})

	in := `[{"credit_score": 700, "loan_amount": 5000}, {"loan_amount": 5000}, {"credit_score": 640, "loan_amount": 9000}]`
	out, err := bulk.Upload(context.Background(), "loan", ingest.FormatJSON, []byte(in))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.Results[1].ID != nil || !strings.Contains(out.Results[1].Error, "credit_score") {
		t.Fatalf("invalid row: %+v", out.Results[1])
	}
	if out.Results[0].ID == nil || out.Results[0].RequiresReview {
		t.Fatalf("row 1: %+v", out.Results[0])
	}
	if out.Results[2].ID == nil || !out.Results[2].RequiresReview || out.Results[2].Status != decisions.StatusPendingHuman {
		t.Fatalf("parse-failed row: %+v", out.Results[2])
	}
}

func TestBulkUploadRejectsBadFiles(t *testing.T) {
	h := newHarness(t, nil, true)
	bulk := NewBulkIngestService(logger.Nop(), h.apps, BulkConfig{MaxRows: 2})
	ctx := context.Background()

	if _, err := bulk.Upload(ctx, "loan", ingest.FormatJSON, []byte(`[{"a":1},{"a":2},{"a":3}]`)); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("too many rows: %v", err)
	}
	if _, err := bulk.Upload(ctx, "loan", ingest.FormatJSON, []byte(`{`)); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("malformed: %v", err)
	}
	if _, err := bulk.Upload(ctx, "pets", ingest.FormatJSON, []byte(`{"a":1}`)); !aggregates.IsCode(err, aggregates.CodeValidation) {
		t.Fatalf("domain: %v", err)
	}
}
