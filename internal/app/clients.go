package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/xai-decision-backend/internal/clients/redis"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine/oaihttp"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine/ollama"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type Clients struct {
	// Model is nil in fast mode.
	Model engine.Engine
	Redis *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	model, err := newEngine(cfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init model engine: %w", err)
	}

	// Redis is optional; without it the result cache stays in process.
	var rdb *goredis.Client
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err = redis.NewClient(ctx, log, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
	}

	return Clients{Model: model, Redis: rdb}, nil
}

func newEngine(cfg Config) (engine.Engine, error) {
	if cfg.FastMode {
		return nil, nil
	}
	switch cfg.Model.Type {
	case engine.TypeOllama, "":
		return ollama.New(cfg.Model)
	case engine.TypeOAIHTTP:
		return oaihttp.New(cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported MODEL_ENGINE %q (want ollama, oai_http or rules)", cfg.Model.Type)
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
