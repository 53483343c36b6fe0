package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/telemetry/logger"
	"github.com/yndnr/authrelay-go/pkg/crypto/adaptive"
)

// Verify validates the configuration. Failures are domain.ErrConfiguration
// with the offending key in the details.
func Verify(cfg *ServerConfig) error {
	checks := []func(*ServerConfig) error{
		verifyHTTP,
		verifyJWT,
		verifySession,
		verifySweep,
		verifyDev,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return domain.ErrConfiguration.WithDetails(fmt.Sprintf(format, args...))
}

func verifyHTTP(cfg *ServerConfig) error {
	h := &cfg.Server.HTTP
	if _, _, err := net.SplitHostPort(h.Address); err != nil {
		return invalid("server.http.address %q: %v", h.Address, err)
	}
	if h.TLS.Enabled {
		for key, path := range map[string]string{"cert": h.TLS.Cert, "key": h.TLS.Key} {
			if path == "" {
				return invalid("server.http.tls.%s is required when tls is enabled", key)
			}
			if _, err := os.Stat(path); err != nil {
				return invalid("server.http.tls.%s: %v", key, err)
			}
		}
	}
	if h.RateLimit < 0 {
		return invalid("server.http.ratelimit must not be negative")
	}
	if h.RateLimit > 0 && h.Burst < 1 {
		return invalid("server.http.burst must be at least 1 when ratelimit is set")
	}
	for _, p := range h.Proxies {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return invalid("server.http.proxies: %q is not an address or CIDR prefix", p)
		}
	}
	return nil
}

func verifyJWT(cfg *ServerConfig) error {
	j := &cfg.JWT
	if strings.TrimSpace(j.Issuer) == "" {
		return invalid("jwt.issuer is required")
	}
	if strings.TrimSpace(j.Audience) == "" {
		return invalid("jwt.audience is required")
	}
	if len(j.Secret) < service.MinSecretLength {
		return invalid("jwt.secret must be at least %d bytes", service.MinSecretLength)
	}
	return nil
}

func verifySession(cfg *ServerConfig) error {
	s := &cfg.Session
	scheme, _, ok := strings.Cut(s.Store, "://")
	if !ok {
		return invalid("session.store %q has no scheme", s.Store)
	}
	switch strings.ToLower(scheme) {
	case "memory", "mem", "badger", "redis", "rediss", "postgres", "postgresql":
	default:
		return invalid("session.store scheme %q is not supported", scheme)
	}
	if s.Cookie == "" {
		return invalid("session.cookie is required")
	}
	if s.TokenTTL <= 0 {
		return invalid("session.tokenttl must be positive")
	}
	if s.RefreshTTL <= 0 {
		return invalid("session.refreshttl must be positive")
	}
	if s.HintMargin < 0 || s.HintMargin >= s.TokenTTL {
		return invalid("session.hintmargin must be in [0, tokenttl)")
	}
	if _, err := ParseCipher(s.Cipher); err != nil {
		return invalid("session.cipher: %v", err)
	}
	if s.Salt != "" && len(s.Salt) < adaptive.MinSaltLength {
		return invalid("session.salt must be at least %d bytes", adaptive.MinSaltLength)
	}
	return nil
}

func verifySweep(cfg *ServerConfig) error {
	if !cfg.Sweep.Enabled {
		return nil
	}
	if cfg.Sweep.Interval <= 0 {
		return invalid("sweep.interval must be positive")
	}
	if cfg.Sweep.Retention <= 0 {
		return invalid("sweep.retention must be positive")
	}
	return nil
}

func verifyDev(cfg *ServerConfig) error {
	if cfg.Clock.Offset != 0 && !cfg.DevAuth.Enabled {
		return invalid("clock.offset is only allowed with devauth.enabled")
	}
	if cfg.DevAuth.Enabled && cfg.DevAuth.Lifetime <= 0 {
		return invalid("devauth.lifetime must be positive")
	}
	return nil
}

func verifyLog(cfg *ServerConfig) error {
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "text", "console":
	default:
		return invalid("log.format %q is not supported", cfg.Log.Format)
	}
	return nil
}

// ParseCipher maps a session.cipher value to an adaptive.CipherType.
func ParseCipher(name string) (adaptive.CipherType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return adaptive.CipherAuto, nil
	case "aes-gcm", "aes-256-gcm":
		return adaptive.CipherAESGCM, nil
	case "chacha20", "chacha20-poly1305":
		return adaptive.CipherChaCha20, nil
	}
	return adaptive.CipherAuto, fmt.Errorf("unknown cipher %q", name)
}
