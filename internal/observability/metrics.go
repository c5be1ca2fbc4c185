package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// Metrics is a small Prometheus-text registry. All methods are safe on a nil
// receiver so call sites never check whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqError *Counter

	modelRequests *CounterVec
	modelLatency  *HistogramVec

	aiStage   *CounterVec
	reviews   *CounterVec
	bulkRows  *CounterVec
	cacheHits *CounterVec

	queueDepth *GaugeVec
	redisUp    *Gauge
	redisPing  *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process registry, or nil when metrics are off.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("xai_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"xai_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("xai_api_inflight_requests", "In-flight API requests."),
		apiReqError: NewCounter("xai_api_requests_error_total", "Total API requests with 5xx status."),
		modelRequests: NewCounterVec("xai_model_requests_total", "Model calls by engine/call type/status.", []string{"engine", "call_type", "status"}),
		modelLatency: NewHistogramVec(
			"xai_model_request_duration_seconds",
			"Model call latency in seconds by engine/call type.",
			[]string{"engine", "call_type"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		aiStage:    NewCounterVec("xai_ai_stage_total", "AI stage outcomes by domain/outcome.", []string{"domain", "outcome"}),
		reviews:    NewCounterVec("xai_reviews_total", "Human reviews by domain/override.", []string{"domain", "override"}),
		bulkRows:   NewCounterVec("xai_bulk_rows_total", "Bulk upload rows by domain/result.", []string{"domain", "result"}),
		cacheHits:  NewCounterVec("xai_result_cache_total", "Result cache lookups by result.", []string{"result"}),
		queueDepth: NewGaugeVec("xai_application_status", "Application records by lifecycle status.", []string{"status"}),
		redisUp:    NewGauge("xai_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:  NewGauge("xai_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.modelRequests, m.modelLatency,
		m.aiStage, m.reviews, m.bulkRows, m.cacheHits,
		m.queueDepth, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	route = orUnknown(route)
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveModelCall(engine, callType string, ok bool, dur time.Duration) {
	if m == nil {
		return
	}
	engine, callType = orUnknown(engine), orUnknown(callType)
	status := "ok"
	if !ok {
		status = "error"
	}
	m.modelRequests.Inc(engine, callType, status)
	if dur > 0 {
		m.modelLatency.Observe(dur.Seconds(), engine, callType)
	}
}

// ObserveAIStage counts one pending_ai -> pending_human transition. outcome
// is the decision status, "parse_failure" or "model_unavailable".
func (m *Metrics) ObserveAIStage(domain, outcome string) {
	if m == nil {
		return
	}
	m.aiStage.Inc(orUnknown(domain), orUnknown(outcome))
}

func (m *Metrics) ObserveReview(domain string, override bool) {
	if m == nil {
		return
	}
	v := "false"
	if override {
		v = "true"
	}
	m.reviews.Inc(orUnknown(domain), v)
}

func (m *Metrics) ObserveBulkRow(domain, result string) {
	if m == nil {
		return
	}
	m.bulkRows.Inc(orUnknown(domain), orUnknown(result))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc("hit")
		return
	}
	m.cacheHits.Inc("miss")
}

// StatusCounter reports record counts per lifecycle status.
type StatusCounter func(ctx context.Context) (map[string]int64, error)

// StartStatusCollector samples the record store on every interval until ctx
// is cancelled.
func (m *Metrics) StartStatusCollector(ctx context.Context, log *logger.Logger, interval time.Duration, statuses []string, count StatusCounter) {
	if m == nil || count == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectStatus(ctx, log, statuses, count)
			}
		}
	}()
}

func (m *Metrics) collectStatus(ctx context.Context, log *logger.Logger, statuses []string, count StatusCounter) {
	for _, s := range statuses {
		m.queueDepth.Set(0, s)
	}
	counts, err := count(ctx)
	if err != nil {
		if log != nil {
			log.Warn("metrics: status count failed", "error", err)
		}
		return
	}
	for status, n := range counts {
		m.queueDepth.Set(float64(n), orUnknown(status))
	}
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, interval time.Duration, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

