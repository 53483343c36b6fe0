package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/crypto/adaptive"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.JWT.Secret = testSecret
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Address != DefaultHTTPAddr {
		t.Errorf("Address = %q, want %q", cfg.Server.HTTP.Address, DefaultHTTPAddr)
	}
	if cfg.Session.TokenTTL != 15*time.Minute {
		t.Errorf("TokenTTL = %v", cfg.Session.TokenTTL)
	}
	if cfg.Session.RefreshTTL != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v", cfg.Session.RefreshTTL)
	}
	if cfg.Session.Cookie != "AuthID" {
		t.Errorf("Cookie = %q", cfg.Session.Cookie)
	}
	if !cfg.Sweep.Enabled || cfg.Sweep.Retention != 24*time.Hour {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
	if cfg.DevAuth.Enabled {
		t.Error("devauth should be disabled by default")
	}
	if cfg.JWT.Secret != "" {
		t.Error("secret must have no default")
	}
}

func TestVerify_Valid(t *testing.T) {
	if err := Verify(validConfig()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"no secret", func(c *ServerConfig) { c.JWT.Secret = "" }, "jwt.secret"},
		{"short secret", func(c *ServerConfig) { c.JWT.Secret = "short" }, "jwt.secret"},
		{"no issuer", func(c *ServerConfig) { c.JWT.Issuer = " " }, "jwt.issuer"},
		{"no audience", func(c *ServerConfig) { c.JWT.Audience = "" }, "jwt.audience"},
		{"bad address", func(c *ServerConfig) { c.Server.HTTP.Address = "localhost" }, "server.http.address"},
		{"tls without cert", func(c *ServerConfig) { c.Server.HTTP.TLS.Enabled = true }, "server.http.tls"},
		{"negative rate", func(c *ServerConfig) { c.Server.HTTP.RateLimit = -1 }, "ratelimit"},
		{"zero burst", func(c *ServerConfig) { c.Server.HTTP.Burst = 0 }, "burst"},
		{"bad proxy", func(c *ServerConfig) { c.Server.HTTP.Proxies = []string{"10.0.0.0/8", "gateway"} }, "server.http.proxies"},
		{"store scheme", func(c *ServerConfig) { c.Session.Store = "mysql://x" }, "session.store"},
		{"store no scheme", func(c *ServerConfig) { c.Session.Store = "/var/lib" }, "session.store"},
		{"zero token ttl", func(c *ServerConfig) { c.Session.TokenTTL = 0 }, "session.tokenttl"},
		{"margin too big", func(c *ServerConfig) { c.Session.HintMargin = time.Hour }, "session.hintmargin"},
		{"cipher", func(c *ServerConfig) { c.Session.Cipher = "rot13" }, "session.cipher"},
		{"short salt", func(c *ServerConfig) { c.Session.Salt = "short" }, "session.salt"},
		{"sweep interval", func(c *ServerConfig) { c.Sweep.Interval = 0 }, "sweep.interval"},
		{"clock offset", func(c *ServerConfig) { c.Clock.Offset = time.Hour }, "clock.offset"},
		{"log level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() expected error")
			}
			if !domain.IsDomainError(err, "AR-CONF-5001") {
				t.Errorf("Verify() error = %v, want AR-CONF-5001", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestVerify_DevClock(t *testing.T) {
	cfg := validConfig()
	cfg.DevAuth.Enabled = true
	cfg.Clock.Offset = -2 * time.Hour
	if err := Verify(cfg); err != nil {
		t.Errorf("clock offset with devauth should pass: %v", err)
	}

	cfg.Sweep.Enabled = false
	cfg.Sweep.Interval = 0
	if err := Verify(cfg); err != nil {
		t.Errorf("disabled sweep should skip its checks: %v", err)
	}
}

func TestVerify_TLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "tls.crt")
	key := filepath.Join(dir, "tls.key")
	for _, p := range []string{cert, key} {
		if err := os.WriteFile(p, []byte("pem"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := validConfig()
	cfg.Server.HTTP.TLS = TLSConfig{Enabled: true, Cert: cert, Key: key}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	cfg.Server.HTTP.TLS.Key = filepath.Join(dir, "missing.key")
	if err := Verify(cfg); err == nil {
		t.Error("Verify() should fail for a missing key file")
	}
}

func TestParseCipher(t *testing.T) {
	tests := map[string]adaptive.CipherType{
		"":                  adaptive.CipherAuto,
		"auto":              adaptive.CipherAuto,
		"AES-GCM":           adaptive.CipherAESGCM,
		"chacha20-poly1305": adaptive.CipherChaCha20,
	}
	for in, want := range tests {
		got, err := ParseCipher(in)
		if err != nil || got != want {
			t.Errorf("ParseCipher(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Session.Key = "at-rest-passphrase"

	sanitized := Sanitize(cfg)

	if cfg.JWT.Secret != testSecret {
		t.Error("original config should not be modified")
	}
	if sanitized.JWT.Secret == testSecret || len(sanitized.JWT.Secret) != len(testSecret) {
		t.Errorf("secret not masked: %q", sanitized.JWT.Secret)
	}
	if !strings.HasPrefix(sanitized.Session.Key, "at") || strings.Contains(sanitized.Session.Key, "passphrase") {
		t.Errorf("session key = %q", sanitized.Session.Key)
	}
}

func TestSanitize_StoreDSN(t *testing.T) {
	tests := []struct {
		dsn, want string
	}{
		{"memory://", "memory://"},
		{"badger:///var/lib/authrelay", "badger:///var/lib/authrelay"},
		{"redis://cache:6379/0", "redis://cache:6379/0"},
		{"postgres://relay:hunter2@db:5432/auth", "postgres://relay:xxxxx@db:5432/auth"},
	}
	for _, tt := range tests {
		cfg := validConfig()
		cfg.Session.Store = tt.dsn
		if got := Sanitize(cfg).Session.Store; got != tt.want {
			t.Errorf("Sanitize(%q).Session.Store = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"", ""},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"1234567890", "12******90"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSessionSection_StoreOptions(t *testing.T) {
	cfg := Default()
	if !cfg.Session.Migrate {
		t.Error("postgres migration should be on by default")
	}

	cfg.Session.Prefix = "relay:"
	cfg.Session.Table = "auth.sessions"
	cfg.Session.Migrate = false
	opts := cfg.Session.StoreOptions(nil, nil)

	if opts.RedisPrefix != "relay:" {
		t.Errorf("RedisPrefix = %q", opts.RedisPrefix)
	}
	if opts.PostgresTable != "auth.sessions" {
		t.Errorf("PostgresTable = %q", opts.PostgresTable)
	}
	if opts.PostgresMigrate {
		t.Error("PostgresMigrate should follow session.migrate")
	}
}

func TestSessionSection_SessionCipher(t *testing.T) {
	cfg := validConfig()
	if c, err := cfg.Session.SessionCipher(); c != nil || err != nil {
		t.Fatalf("SessionCipher() without key = %v, %v", c, err)
	}

	cfg.Session.Key = "at-rest-passphrase"
	cfg.Session.Salt = "deployment-salt-0001"
	cfg.Session.Cipher = "chacha20-poly1305"
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	c, err := cfg.Session.SessionCipher()
	if err != nil || c == nil {
		t.Fatalf("SessionCipher() = %v, %v", c, err)
	}

	ref, err := adaptive.FromPassphrase("at-rest-passphrase", []byte("deployment-salt-0001"), adaptive.CipherChaCha20)
	if err != nil {
		t.Fatal(err)
	}
	sealed, _ := ref.SealString("claims", "id")
	if got, err := c.OpenString(sealed, "id"); err != nil || got != "claims" {
		t.Errorf("OpenString() = %q, %v", got, err)
	}
}
