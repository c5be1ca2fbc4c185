package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(b))}
}

func TestCompleteSendsJSONMode(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://ollama:11434/api/generate" {
			t.Fatalf("url=%s", req.URL)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in["model"] != DefaultModel || in["stream"] != false || in["format"] != "json" {
			t.Fatalf("request=%v", in)
		}
		opts, _ := in["options"].(map[string]any)
		if opts["num_ctx"] != 2048.0 || opts["num_predict"] != 512.0 {
			t.Fatalf("options=%v", opts)
		}
		return jsonResponse(http.StatusOK, map[string]any{"response": `{"decision":{"status":"approved"}}`, "done": true}), nil
	})}

	e, err := NewWithHTTPClient(engine.Config{BaseURL: "http://ollama:11434", NumCtx: 2048, NumPredict: 512, Temperature: 0.3}, client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := e.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"decision":{"status":"approved"}}` {
		t.Fatalf("out=%q", out)
	}
}

func TestCompleteFailures(t *testing.T) {
	cases := map[string]roundTripperFunc{
		"refused": func(*http.Request) (*http.Response, error) { return nil, errors.New("dial tcp: connection refused") },
		"500":     func(*http.Request) (*http.Response, error) { return jsonResponse(500, map[string]any{"error": "oom"}), nil },
		"error":   func(*http.Request) (*http.Response, error) { return jsonResponse(200, map[string]any{"error": "model not found"}), nil },
		"blank":   func(*http.Request) (*http.Response, error) { return jsonResponse(200, map[string]any{"response": "  "}), nil },
	}
	for name, rt := range cases {
		e, _ := NewWithHTTPClient(engine.Config{}, &http.Client{Transport: rt})
		if _, err := e.Complete(context.Background(), "prompt"); !errors.Is(err, engine.ErrModelUnavailable) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %v", name, err)
		}
	}
}

func TestPing(t *testing.T) {
	pulled := false
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != tagsPath {
			t.Fatalf("path=%s", req.URL.Path)
		}
		models := []any{map[string]any{"name": "llama3:8b"}}
		if pulled {
			models = append(models, map[string]any{"name": DefaultModel})
		}
		return jsonResponse(http.StatusOK, map[string]any{"models": models}), nil
	})}
	e, _ := NewWithHTTPClient(engine.Config{}, client)
	var he *engine.HTTPError
	if err := e.Ping(context.Background()); !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	pulled = true
	if err := e.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
