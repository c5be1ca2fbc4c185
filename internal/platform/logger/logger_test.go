package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	redactOnce.Do(func() { redactionEnabled = true })

	long := strings.Repeat("x", maxPayloadChars+10)
	out := sanitizeKVs([]any{
		"model_api_key", "sk-123",
		"reviewer", "alice",
		"prompt", long,
		"domain", "loan",
		"dangling",
	})
	if len(out) != 9 {
		t.Fatalf("len=%d out=%v", len(out), out)
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api key not redacted: %v", out[1])
	}
	if h, _ := out[3].(string); !strings.HasPrefix(h, "hash:") || strings.Contains(h, "alice") {
		t.Fatalf("reviewer not hashed: %v", out[3])
	}
	if p, _ := out[5].(string); !strings.HasSuffix(p, "...(10 more)") {
		t.Fatalf("prompt not truncated: %q", p[len(p)-20:])
	}
	if out[7] != "loan" || out[8] != "dangling" {
		t.Fatalf("plain values changed: %v", out[6:])
	}
}

func TestHashValueStable(t *testing.T) {
	if hashValue("alice") != hashValue("alice") || hashValue("alice") == hashValue("bob") {
		t.Fatalf("hash not stable/distinct")
	}
	if hashValue("") != "" {
		t.Fatalf("empty should stay empty")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := New("development"); err == nil {
		t.Fatalf("expected error for bad LOG_LEVEL")
	}
	t.Setenv("LOG_LEVEL", "error")
	l, err := New("production")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.SugaredLogger.Desugar().Core().Enabled(-1) {
		t.Fatalf("debug should be disabled at error level")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		key  string
		want fieldRule
	}{
		{"REVIEWER_JWT_SECRET", ruleRedact},
		{"reviewed_by", ruleHash},
		{"raw_output", ruleTruncate},
		{"raw_output_len", ruleKeep},
		{"application_id", ruleKeep},
		{"", ruleKeep},
	}
	for _, tc := range cases {
		if got := classify(tc.key); got != tc.want {
			t.Fatalf("classify(%q)=%d want %d", tc.key, got, tc.want)
		}
	}
}
