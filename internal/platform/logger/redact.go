package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

// Key fragments whose values never reach the log.
var secretFragments = []string{
	"token", "authorization", "password", "secret",
	"api_key", "apikey", "dsn", "email",
}

// Keys whose values are end-user text or identity. They are replaced by a
// short salted digest so equal values still correlate across entries.
var digestKeys = map[string]bool{
	"query_text": true,
	"raw_query":  true,
	"normalized": true,
}

type policy struct {
	salt string
}

// policyFromEnv returns nil when LOG_REDACTION_ENABLED is falsy.
func policyFromEnv() *policy {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		return nil
	}
	return &policy{salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
}

func (p *policy) apply(kv []any) []any {
	if p == nil || len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key := stringify(out[i])
		out[i] = key
		out[i+1] = p.value(strings.ToLower(key), out[i+1])
	}
	return out
}

func (p *policy) value(key string, v any) any {
	switch {
	case isSecretKey(key):
		return redacted
	case digestKeys[key] || strings.Contains(key, "user_id"):
		return p.digest(v)
	}
	switch t := v.(type) {
	case map[string]any:
		nested := make(map[string]any, len(t))
		for k, inner := range t {
			nested[k] = p.value(strings.ToLower(k), inner)
		}
		return nested
	case string:
		if looksLikeJWT(t) {
			return redacted
		}
	}
	return v
}

func (p *policy) digest(v any) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func isSecretKey(key string) bool {
	for _, frag := range secretFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v any) string {
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
