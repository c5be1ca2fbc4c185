package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxPayloadChars bounds model prompts and raw outputs in log lines; the full
// text lives in the model call log.
const maxPayloadChars = 512

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a zap logger for the given LOG_MODE. LOG_LEVEL, when set,
// overrides the mode's default level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	level := zapcore.DebugLevel
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		level = zapcore.InfoLevel
	case "test":
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.WarnLevel
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL %q: %w", raw, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

var (
	redactOnce       sync.Once
	redactionEnabled bool
	hashSalt         string
)

type fieldRule int

const (
	ruleKeep fieldRule = iota
	ruleRedact
	ruleHash
	ruleTruncate
)

// Substring matches, checked in order. Applicant and reviewer identifiers
// stay joinable across lines through a salted hash.
var fieldRules = []struct {
	fragment string
	rule     fieldRule
}{
	{"token", ruleRedact},
	{"authorization", ruleRedact},
	{"password", ruleRedact},
	{"secret", ruleRedact},
	{"api_key", ruleRedact},
	{"apikey", ruleRedact},
	{"applicant_id", ruleHash},
	{"reviewed_by", ruleHash},
	{"reviewer", ruleHash},
}

// payloadKeys carry model text and are truncated, matched exactly.
var payloadKeys = map[string]bool{"prompt": true, "response": true, "raw_output": true, "raw": true}

func classify(key string) fieldRule {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ruleKeep
	}
	if payloadKeys[key] {
		return ruleTruncate
	}
	for _, r := range fieldRules {
		if strings.Contains(key, r.fragment) {
			return r.rule
		}
	}
	return ruleKeep
}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !redactionOn() {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := toString(kv[i])
		out = append(out, key, sanitizeValue(key, kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch classify(key) {
	case ruleRedact:
		return "[REDACTED]"
	case ruleHash:
		return hashValue(val)
	case ruleTruncate:
		return truncate(toString(val), maxPayloadChars)
	}
	if m, ok := val.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = sanitizeValue(k, v)
		}
		return out
	}
	return val
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d more)", string(r[:n]), len(r)-n)
}

func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(hashSalt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// redactionOn reads LOG_REDACTION_ENABLED and LOG_HASH_SALT once.
func redactionOn() bool {
	redactOnce.Do(func() {
		redactionEnabled = true
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactionEnabled = false
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactionEnabled
}
