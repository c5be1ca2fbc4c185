package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/health", "200", time.Millisecond)
	m.ObserveModelCall("ollama", "decision", true, time.Second)
	m.ObserveAIStage("loan", "approved")
	m.ObserveReview("loan", true)
	m.ObserveBulkRow("loan", "ok")
	m.ObserveCache(true)
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/applications", "503", 20*time.Millisecond)
	m.ObserveModelCall("ollama", "decision", false, 2*time.Second)
	m.ObserveAIStage("loan", "model_unavailable")
	m.ObserveReview("credit", true)
	m.collectStatus(context.Background(), nil, []string{"pending_ai", "completed"}, func(context.Context) (map[string]int64, error) {
		return map[string]int64{"pending_ai": 4}, nil
	})

	var b strings.Builder
	if err := m.WritePrometheus(&b); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		`xai_api_requests_total{method="POST",route="/applications",status="503"} 1.000000`,
		`xai_api_requests_error_total 1.000000`,
		`xai_model_requests_total{engine="ollama",call_type="decision",status="error"} 1.000000`,
		`xai_model_request_duration_seconds_bucket{engine="ollama",call_type="decision",le="2"} 1`,
		`xai_ai_stage_total{domain="loan",outcome="model_unavailable"} 1.000000`,
		`xai_reviews_total{domain="credit",override="true"} 1.000000`,
		`xai_application_status{status="pending_ai"} 4.000000`,
		`xai_application_status{status="completed"} 0.000000`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestOnlyServerErrorsCountAsAPIErrors(t *testing.T) {
	m := newMetrics()
	for _, status := range []string{"200", "404", "409", "500", " 503", "5", "5000"} {
		m.ObserveAPI("GET", "/applications", status, time.Millisecond)
	}
	if got := m.apiReqError.Value(); got != 2 {
		t.Fatalf("api errors=%v, want 2", got)
	}
}

func TestCollectStatusKeepsZeroesOnError(t *testing.T) {
	m := newMetrics()
	m.collectStatus(context.Background(), nil, []string{"pending_human"}, func(context.Context) (map[string]int64, error) {
		return nil, errors.New("db down")
	})
	var b strings.Builder
	_ = m.WritePrometheus(&b)
	if !strings.Contains(b.String(), `xai_application_status{status="pending_human"} 0.000000`) {
		t.Fatalf("expected zeroed gauge:\n%s", b.String())
	}
}

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders(" api-key = abc , broken, x=1 ")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "1" {
		t.Fatalf("headers=%v", h)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty should be nil")
	}
}
