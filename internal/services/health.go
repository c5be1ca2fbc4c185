package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/rules"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

type HealthReport struct {
	Status    string                     `json:"status"`
	Engine    string                     `json:"engine"`
	Model     string                     `json:"model,omitempty"`
	Available bool                       `json:"available"`
	FastMode  bool                       `json:"fast_mode"`
	Error     string                     `json:"error,omitempty"`
	Queue     map[decisions.Status]int64 `json:"queue,omitempty"`
	CheckedAt time.Time                  `json:"checked_at"`
}

type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	log     *logger.Logger
	model   engine.Engine
	apps    repos.ApplicationRepo
	calls   repos.ModelCallLogRepo
	fast    bool
	timeout time.Duration
}

func NewHealthService(log *logger.Logger, model engine.Engine, r repos.Repos, fastMode bool) HealthService {
	return &healthService{
		log:     log.With("service", "HealthService"),
		model:   model,
		apps:    r.Applications,
		calls:   r.CallLogs,
		fast:    fastMode,
		timeout: 10 * time.Second,
	}
}

// Check probes the model: reachable and serving the configured model is
// healthy, reachable but answering with an error is degraded, unreachable
// is unhealthy. Fast mode never needs the model.
func (s *healthService) Check(ctx context.Context) HealthReport {
	rep := HealthReport{CheckedAt: time.Now().UTC(), FastMode: s.fast}
	if counts, err := s.apps.CountByStatus(dbctx.From(ctx)); err == nil {
		rep.Queue = counts
	} else {
		s.log.Warn("status counts unavailable", "error", err)
	}

	if s.fast || s.model == nil {
		rep.Status, rep.Engine, rep.Available = HealthHealthy, rules.EngineName, true
		return rep
	}
	rep.Engine, rep.Model = s.model.Name(), s.model.Model()

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	err := s.model.Ping(pingCtx)
	dur := time.Since(start)
	s.record(ctx, err, dur)
	observability.Current().ObserveModelCall(s.model.Name(), decisions.CallTypeHealth, err == nil, dur)

	var httpErr *engine.HTTPError
	switch {
	case err == nil:
		rep.Status, rep.Available = HealthHealthy, true
	case errors.As(err, &httpErr):
		rep.Status, rep.Error = HealthDegraded, "Model not responding correctly: "+httpErr.Error()
	default:
		rep.Status, rep.Error = HealthUnhealthy, err.Error()
	}
	return rep
}

func (s *healthService) record(ctx context.Context, err error, dur time.Duration) {
	if s.calls == nil {
		return
	}
	entry := &decisions.ModelCallLog{
		ID:         uuid.New(),
		CallType:   decisions.CallTypeHealth,
		Engine:     s.model.Name(),
		Model:      s.model.Model(),
		Success:    err == nil,
		DurationMS: dur.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := s.calls.Create(dbctx.From(ctx), entry); logErr != nil {
		s.log.Warn("health call log write failed", "error", logErr)
	}
}
