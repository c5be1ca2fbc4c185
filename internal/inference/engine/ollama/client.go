package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/inference/httpx"
)

const (
	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2.5:3b"
)

// Engine calls a local Ollama server's non-streaming generate endpoint in
// JSON mode.
type Engine struct {
	model   string
	options map[string]any
	http    *httpx.Client
}

func New(cfg engine.Config) (*Engine, error) {
	return NewWithHTTPClient(cfg, nil)
}

func NewWithHTTPClient(cfg engine.Config, httpClient *http.Client) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	return &Engine{
		model:   model,
		options: buildOptions(cfg),
		http:    &httpx.Client{BaseURL: baseURL, Timeout: timeout, HTTP: httpClient},
	}, nil
}

// buildOptions keeps CPU inference predictable: small context, bounded output.
func buildOptions(cfg engine.Config) map[string]any {
	opts := map[string]any{
		"temperature":    cfg.Temperature,
		"top_p":          0.9,
		"repeat_penalty": 1.1,
	}
	if cfg.NumCtx > 0 {
		opts["num_ctx"] = cfg.NumCtx
	}
	if cfg.NumPredict > 0 {
		opts["num_predict"] = cfg.NumPredict
	}
	return opts
}

func (e *Engine) Name() string  { return engine.TypeOllama }
func (e *Engine) Model() string { return e.model }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("ollama: empty prompt")
	}
	req := generateRequest{
		Model:   e.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: e.options,
	}
	var resp generateResponse
	if err := e.http.Do(ctx, http.MethodPost, generatePath, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", engine.Unavailable("ollama generate", errors.New(resp.Error))
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", engine.Unavailable("ollama generate", errors.New("empty response"))
	}
	return resp.Response, nil
}

// Ping checks that the server answers and has the configured model pulled.
func (e *Engine) Ping(ctx context.Context) error {
	var resp struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := e.http.Do(ctx, http.MethodGet, tagsPath, nil, &resp); err != nil {
		return err
	}
	for _, m := range resp.Models {
		if m.Name == e.model || m.Model == e.model {
			return nil
		}
	}
	return &engine.HTTPError{StatusCode: http.StatusNotFound, Body: "model " + e.model + " not pulled"}
}
