package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type AIStageWorkerConfig struct {
	Concurrency int
	QueueSize   int
	// SweepInterval re-enqueues records stranded in pending_ai, e.g. after a
	// restart or a full queue. Zero disables the periodic sweep; the startup
	// sweep always runs.
	SweepInterval time.Duration
}

// AIStageWorker runs the AI stage for submitted records in the background.
type AIStageWorker struct {
	log   *logger.Logger
	svc   ApplicationService
	apps  repos.ApplicationRepo
	cfg   AIStageWorkerConfig
	queue chan uuid.UUID

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	wg      sync.WaitGroup
}

func NewAIStageWorker(log *logger.Logger, svc ApplicationService, apps repos.ApplicationRepo, cfg AIStageWorkerConfig) *AIStageWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	return &AIStageWorker{
		log:     log.With("component", "AIStageWorker"),
		svc:     svc,
		apps:    apps,
		cfg:     cfg,
		queue:   make(chan uuid.UUID, cfg.QueueSize),
		pending: map[uuid.UUID]struct{}{},
	}
}

// Enqueue never blocks. It reports false when the queue is full; the
// record stays pending_ai for the next sweep. An id that is already queued
// or claimed reports true without being queued again.
func (w *AIStageWorker) Enqueue(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[id]; ok {
		return true
	}
	select {
	case w.queue <- id:
		w.pending[id] = struct{}{}
		return true
	default:
		return false
	}
}

// Claim reserves id for an inline caller. It reports false when the id is
// already queued, running or claimed.
func (w *AIStageWorker) Claim(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[id]; ok {
		return false
	}
	w.pending[id] = struct{}{}
	return true
}

func (w *AIStageWorker) Release(id uuid.UUID) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

func (w *AIStageWorker) Start(ctx context.Context) {
	w.log.Info("Starting AI stage worker pool", "concurrency", w.cfg.Concurrency, "sweep_interval", w.cfg.SweepInterval.String())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go w.runLoop(ctx, workerID)
	}
	w.wg.Add(1)
	go w.sweepLoop(ctx)
}

// Wait blocks until every loop has exited after ctx is cancelled.
func (w *AIStageWorker) Wait() { w.wg.Wait() }

func (w *AIStageWorker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Worker loop stopped", "worker_id", workerID)
			return
		case id := <-w.queue:
			w.process(ctx, workerID, id)
		}
	}
}

func (w *AIStageWorker) process(ctx context.Context, workerID int, id uuid.UUID) {
	defer func() {
		w.Release(id)
		if r := recover(); r != nil {
			w.log.Error("AI stage panicked", "worker_id", workerID, "application_id", id, "panic", r)
		}
	}()
	_, err := w.svc.RunAIStage(ctx, id)
	switch {
	case err == nil:
	case aggregates.IsCode(err, aggregates.CodeInvalidState):
		w.log.Debug("AI stage skipped; record already advanced", "worker_id", workerID, "application_id", id)
	default:
		w.log.Warn("AI stage failed", "worker_id", workerID, "application_id", id, "error", err)
	}
}

func (w *AIStageWorker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()
	w.Sweep(ctx)
	if w.cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep enqueues every record still in pending_ai and returns how many
// were accepted.
func (w *AIStageWorker) Sweep(ctx context.Context) int {
	stranded, err := w.apps.List(dbctx.From(ctx), repos.ApplicationFilter{
		Statuses: []decisions.Status{decisions.StatusPendingAI},
	})
	if err != nil {
		w.log.Warn("pending_ai sweep failed", "error", err)
		return 0
	}
	n := 0
	for _, app := range stranded {
		if w.Enqueue(app.ID) {
			n++
		}
	}
	if n > 0 {
		w.log.Info("re-enqueued pending_ai records", "count", n)
	}
	return n
}
