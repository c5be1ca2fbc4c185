package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	TypeOllama  = "ollama"
	TypeOAIHTTP = "oai_http"
)

// ErrModelUnavailable marks failures to reach the model or to get a usable
// completion from it (transport error, timeout, non-2xx, empty body).
var ErrModelUnavailable = errors.New("model unavailable")

// Config is shared by every engine implementation; fields an engine does not
// understand are ignored.
type Config struct {
	Type        string
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	NumCtx      int
	NumPredict  int
}

// Engine is a text-completion model that is asked for a JSON object.
type Engine interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
}

// HTTPError is a non-2xx answer from the model server.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrModelUnavailable }

// Unavailable wraps err so errors.Is(err, ErrModelUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrModelUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrModelUnavailable, err)
}

// IsTimeout reports deadline failures from the context or the network.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
