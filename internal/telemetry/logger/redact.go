package logger

import (
	"log/slog"
	"strings"
)

// Keys whose string values are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"cookie",
	"authid",
	"credential",
	"passphrase",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if IsSensitiveValue(v) {
			return slog.String(a.Key, RedactString(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactString masks a bearer credential or JWT, keeping a short hint.
// Other values are returned unchanged.
func RedactString(value string) string {
	if !IsSensitiveValue(value) {
		return value
	}
	prefix := ""
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		prefix, value = value[:7], value[7:]
	}
	if len(value) <= 12 {
		return prefix + "***"
	}
	return prefix + value[:6] + "..." + value[len(value)-4:]
}

// IsSensitiveKey reports whether a key name suggests a credential.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether a value looks like a bearer credential
// or a compact JWS/JWE.
func IsSensitiveValue(value string) bool {
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return true
	}
	if !strings.HasPrefix(value, "eyJ") {
		return false
	}
	dots := strings.Count(value, ".")
	return (dots == 2 || dots == 4) && !strings.ContainsAny(value, " \t\n")
}
