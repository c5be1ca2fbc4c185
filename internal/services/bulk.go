package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/ingest"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

const DefaultBulkConcurrency = 5

type BulkConfig struct {
	Concurrency int
	MaxRows     int
}

// BulkRowResult is the outcome of one uploaded row. ID is empty when the row
// never became a record.
type BulkRowResult struct {
	Row            int               `json:"row"`
	ID             *uuid.UUID        `json:"id,omitempty"`
	Status         decisions.Status  `json:"status,omitempty"`
	AIStatus       decisions.Outcome `json:"ai_status,omitempty"`
	RequiresReview bool              `json:"requires_review"`
	Error          string            `json:"error,omitempty"`
}

type BulkResult struct {
	Count    int             `json:"count"`
	FileType ingest.Format   `json:"file_type"`
	Results  []BulkRowResult `json:"results"`
}

type BulkIngestService interface {
	Upload(ctx context.Context, domain string, format ingest.Format, content []byte) (*BulkResult, error)
}

type bulkIngestService struct {
	log  *logger.Logger
	apps ApplicationService
	cfg  BulkConfig
}

func NewBulkIngestService(log *logger.Logger, apps ApplicationService, cfg BulkConfig) BulkIngestService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultBulkConcurrency
	}
	if cfg.MaxRows < 1 {
		cfg.MaxRows = ingest.DefaultMaxRows
	}
	return &bulkIngestService{
		log:  log.With("service", "BulkIngestService"),
		apps: apps,
		cfg:  cfg,
	}
}

// Upload creates one record per row and drives each through the AI stage,
// at most cfg.Concurrency at a time. Rows fail independently; only a file
// that cannot be decoded at all fails the call.
func (s *bulkIngestService) Upload(ctx context.Context, domain string, format ingest.Format, content []byte) (*BulkResult, error) {
	const op = "services.BulkUpload"
	if _, ok := decisions.ParseDomain(domain); !ok {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "decision_type must be one of loan, job, insurance, credit", decisions.ErrValidation)
	}
	rows, err := ingest.Applicants(format, content, s.cfg.MaxRows)
	if err != nil {
		return nil, uploadError(op, err)
	}

	start := time.Now()
	results := make([]BulkRowResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, row := range rows {
		i, row := i, row
		results[i].Row = i + 1
		g.Go(func() error {
			s.processRow(gctx, domain, row, &results[i])
			observability.Current().ObserveBulkRow(domain, rowOutcome(results[i]))
			// never abort siblings
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("bulk upload processed", "domain", domain, "format", format, "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())
	return &BulkResult{Count: len(rows), FileType: format, Results: results}, nil
}

func (s *bulkIngestService) processRow(ctx context.Context, domain string, row map[string]any, out *BulkRowResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("bulk row panicked", "row", out.Row, "panic", r)
			out.Error = "internal error"
		}
	}()
	app, err := s.apps.Inquiry(ctx, domain, row)
	if app == nil {
		out.Error = aggregates.MessageOf(err)
		return
	}
	id := app.ID
	out.ID = &id
	out.Status = app.Status
	if err != nil {
		out.Error = aggregates.MessageOf(err)
		out.RequiresReview = true
		return
	}
	view, err := app.View()
	if err != nil {
		out.Error = aggregates.MessageOf(err)
		return
	}
	out.RequiresReview = view.RequiresReview
	if view.AIResult != nil {
		out.AIStatus = view.AIResult.Decision.Status
	}
	if view.AIFailure != nil {
		out.Error = view.AIFailure.Message
	}
}

func rowOutcome(r BulkRowResult) string {
	switch {
	case r.ID == nil:
		return "rejected"
	case r.Error != "":
		return "flagged"
	}
	return "ok"
}
