package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyRedactsSecretsAndDigestsQueries(t *testing.T) {
	p := &policy{salt: "s"}
	out := p.apply([]any{
		"api_key", "sk-123",
		"query_text", "返品したい",
		"tenant_id", "t-1",
		"meta", map[string]any{"Authorization": "Bearer x"},
	})
	require.Len(t, out, 8)
	assert.Equal(t, redacted, out[1])
	assert.Contains(t, out[3], "hash:")
	assert.NotContains(t, out[3], "返品")
	assert.Equal(t, "t-1", out[5])
	assert.Equal(t, redacted, out[7].(map[string]any)["Authorization"])
}

func TestPolicyDigestIsStableForEqualText(t *testing.T) {
	p := &policy{salt: "s"}
	assert.Equal(t, p.digest("q"), p.digest("q"))
	assert.NotEqual(t, p.digest("q"), (&policy{salt: "t"}).digest("q"))
	assert.Equal(t, "", p.digest(""))
}

func TestPolicyRedactsJWTShapedValues(t *testing.T) {
	p := &policy{}
	out := p.apply([]any{"note", "eyJhbGciOiJIUzI1.eyJzdWIiOiIxMjM0.sig"})
	assert.Equal(t, redacted, out[1])
}

func TestNilPolicyPassesThrough(t *testing.T) {
	var p *policy
	kv := []any{"password", "hunter2"}
	assert.Equal(t, kv, p.apply(kv))
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	assert.Nil(t, policyFromEnv())
	t.Setenv("LOG_REDACTION_ENABLED", "")
	t.Setenv("LOG_HASH_SALT", " pepper ")
	p := policyFromEnv()
	require.NotNil(t, p)
	assert.Equal(t, "pepper", p.salt)
}

func TestOddTrailingKeyKept(t *testing.T) {
	out := (&policy{}).apply([]any{"a", 1, "dangling"})
	assert.Equal(t, []any{"a", 1, "dangling"}, out)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("x", "k", "v")
	assert.NotNil(t, l.With("k", "v"))
}
