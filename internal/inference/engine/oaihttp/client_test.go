package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func testConfig() engine.Config {
	return engine.Config{
		Type:        engine.TypeOAIHTTP,
		BaseURL:     "http://upstream/",
		Model:       "local-model",
		APIKey:      "k",
		Timeout:     2 * time.Second,
		Temperature: 0.3,
	}
}

func TestComplete(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != chatCompletionsPath {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer k" {
			t.Fatalf("authorization=%q", got)
		}
		var in chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "local-model" || len(in.Messages) != 2 || in.Messages[1].Content != "decide" {
			t.Fatalf("request=%+v", in)
		}
		if in.ResponseFormat["type"] != "json_object" {
			t.Fatalf("response_format=%v", in.ResponseFormat)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"decision":{}}`}}},
		}), nil
	})}

	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	out, err := e.Complete(context.Background(), "decide")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"decision":{}}` {
		t.Fatalf("out=%q", out)
	}
}

func TestCompleteUnavailable(t *testing.T) {
	cases := map[string]roundTripperFunc{
		"status": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, map[string]any{"error": "down"}), nil
		},
		"transport": func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
		"empty": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]any{"choices": []any{}}), nil
		},
	}
	for name, rt := range cases {
		e, err := NewWithHTTPClient(testConfig(), &http.Client{Transport: rt})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if _, err := e.Complete(context.Background(), "decide"); !errors.Is(err, engine.ErrModelUnavailable) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %v", name, err)
		}
	}
}

func TestPing(t *testing.T) {
	models := []any{map[string]any{"id": "other"}}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != modelsPath {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, map[string]any{"data": models}), nil
	})}
	e, _ := NewWithHTTPClient(testConfig(), client)

	var he *engine.HTTPError
	if err := e.Ping(context.Background()); !errors.As(err, &he) {
		t.Fatalf("expected HTTPError for missing model, got %v", err)
	}
	models = append(models, map[string]any{"id": "local-model"})
	if err := e.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(engine.Config{Model: "m"}); err == nil {
		t.Fatalf("expected error")
	}
}
