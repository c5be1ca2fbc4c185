package app

import (
	"testing"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/data/db"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "MODEL_ENGINE", "FAST_MODE", "BULK_CONCURRENCY", "CACHE_TTL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "8000" || cfg.DB.Driver != db.DriverSQLite || cfg.Model.Type != engine.TypeOllama {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Model.Model != "qwen2.5:3b" || cfg.Model.Timeout != 120*time.Second {
		t.Fatalf("model=%+v", cfg.Model)
	}
	if cfg.BulkConcurrency != 5 || cfg.BulkMaxRows != 50 || cfg.UploadMaxBytes != 10<<20 || cfg.CacheTTL != time.Hour {
		t.Fatalf("limits=%+v", cfg)
	}
	if cfg.FastMode || cfg.AllowedOrigins != nil {
		t.Fatalf("fast=%v origins=%v", cfg.FastMode, cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MODEL_ENGINE", "rules")
	t.Setenv("DB_DRIVER", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("BULK_CONCURRENCY", "8")
	cfg := LoadConfig(logger.Nop())
	if !cfg.FastMode || cfg.DB.Driver != db.DriverMemory || cfg.BulkConcurrency != 8 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins=%v", cfg.AllowedOrigins)
	}
}

func TestNewEngine(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{name: "fast", cfg: Config{FastMode: true}, want: ""},
		{name: "ollama", cfg: Config{Model: engine.Config{Type: engine.TypeOllama}}, want: "ollama"},
		{name: "oai", cfg: Config{Model: engine.Config{Type: engine.TypeOAIHTTP, BaseURL: "http://llm:8001", Model: "m"}}, want: "oai_http"},
		{name: "unknown", cfg: Config{Model: engine.Config{Type: "bard"}}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, err := newEngine(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v", err)
			}
			if tc.wantErr {
				return
			}
			if tc.want == "" {
				if eng != nil {
					t.Fatalf("fast mode should have no engine")
				}
				return
			}
			if eng == nil || eng.Name() != tc.want {
				t.Fatalf("engine=%v", eng)
			}
		})
	}
}

func TestWireStorageMemory(t *testing.T) {
	s, err := wireStorage(logger.Nop(), db.Config{Driver: db.DriverMemory})
	if err != nil {
		t.Fatalf("wireStorage: %v", err)
	}
	if s.DB != nil || s.Repos.Applications == nil || s.Tx == nil {
		t.Fatalf("storage=%+v", s)
	}
	s.Close()
}
