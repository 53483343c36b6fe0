package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of cfg that is safe to log: the signing secret
// and session key are masked and any password in the store DSN is
// replaced.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.JWT.Secret = maskSecret(out.JWT.Secret)
	out.Session.Key = maskSecret(out.Session.Key)
	out.Session.Store = redactDSN(out.Session.Store)
	return &out
}

// maskSecret keeps the first and last two characters of s. Short values are
// fully masked and empty values stay empty.
func maskSecret(s string) string {
	switch n := len(s); {
	case n == 0:
		return ""
	case n <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", n-4) + s[n-2:]
	}
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	return u.Redacted()
}
