package oaihttp

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
	chatCompletionsPath = "/v1/chat/completions"
	modelsPath          = "/v1/models"
)

// Engine talks to an OpenAI-compatible server (vLLM, llama.cpp, LM Studio).
type Engine struct {
	model       string
	temperature float64
	maxTokens   int
	http        *httpx.Client
}

func New(cfg engine.Config) (*Engine, error) {
	return NewWithHTTPClient(cfg, nil)
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg engine.Config, httpClient *http.Client) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oai_http: base_url required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("oai_http: model required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	return &Engine{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.NumPredict,
		http: &httpx.Client{
			BaseURL: baseURL,
			APIKey:  strings.TrimSpace(cfg.APIKey),
			Timeout: timeout,
			HTTP:    httpClient,
		},
	}, nil
}

func (e *Engine) Name() string  { return engine.TypeOAIHTTP }
func (e *Engine) Model() string { return e.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

const systemPrompt = "Return ONLY a valid JSON object. Do not include markdown or commentary."

func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("oai_http: empty prompt")
	}
	req := chatCompletionRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    e.temperature,
		MaxTokens:      e.maxTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}
	var resp chatCompletionResponse
	if err := e.http.Do(ctx, http.MethodPost, chatCompletionsPath, req, &resp); err != nil {
		return "", err
	}
	text := extractChatText(resp)
	if strings.TrimSpace(text) == "" {
		return "", engine.Unavailable("oai_http complete", errors.New("empty upstream completion"))
	}
	return text, nil
}

// Ping lists the served models and checks the configured one is among them.
func (e *Engine) Ping(ctx context.Context) error {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := e.http.Do(ctx, http.MethodGet, modelsPath, nil, &resp); err != nil {
		return err
	}
	for _, m := range resp.Data {
		if m.ID == e.model {
			return nil
		}
	}
	return &engine.HTTPError{StatusCode: http.StatusNotFound, Body: "model " + e.model + " not served"}
}

func extractChatText(resp chatCompletionResponse) string {
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}
