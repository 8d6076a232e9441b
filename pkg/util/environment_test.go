package util

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	env := map[string]string{
		"STRING":       "value",
		"INT":          "42",
		"BAD_INT":      "forty-two",
		"DURATION":     "30s",
		"BAD_DURATION": "soon",
		"BOOL":         "false",
		"BAD_BOOL":     "nope",
	}

	if got := EnvString(env, "STRING", "fallback"); got != "value" {
		t.Errorf("EnvString = %q, want value", got)
	}
	if got := EnvString(env, "MISSING", "fallback"); got != "fallback" {
		t.Errorf("EnvString fallback = %q", got)
	}

	if got := EnvInt(env, "INT", 7); got != 42 {
		t.Errorf("EnvInt = %d, want 42", got)
	}
	if got := EnvInt(env, "BAD_INT", 7); got != 7 {
		t.Errorf("EnvInt on unparsable = %d, want fallback 7", got)
	}

	if got := EnvDuration(env, "DURATION", time.Minute); got != 30*time.Second {
		t.Errorf("EnvDuration = %v, want 30s", got)
	}
	if got := EnvDuration(env, "BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("EnvDuration on unparsable = %v, want fallback 1m", got)
	}

	if got := EnvBool(env, "BOOL", true); got != false {
		t.Errorf("EnvBool = %v, want false", got)
	}
	if got := EnvBool(env, "BAD_BOOL", true); got != true {
		t.Errorf("EnvBool on unparsable = %v, want fallback true", got)
	}
}
