package config

import "time"

// ServerConfig is the root configuration for authrelay-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	JWT     JWTSection     `koanf:"jwt"`
	Session SessionSection `koanf:"session"`
	Sweep   SweepSection   `koanf:"sweep"`
	Clock   ClockSection   `koanf:"clock"`
	DevAuth DevAuthSection `koanf:"devauth"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Address string    `koanf:"address"`
	TLS     TLSConfig `koanf:"tls"`

	// Origins is the CORS allow-list. Empty disables CORS headers.
	Origins []string `koanf:"origins"`

	// RateLimit is requests per second per client IP on /login and
	// /auth/*. Zero disables limiting.
	RateLimit float64 `koanf:"ratelimit"`
	Burst     int     `koanf:"burst"`

	// Proxies lists trusted reverse proxies (CIDR or address). Forwarding
	// headers are ignored from any other peer.
	Proxies []string `koanf:"proxies"`
}

// TLSConfig configures HTTPS.
type TLSConfig struct {
	Enabled bool   `koanf:"enabled"`
	Cert    string `koanf:"cert"`
	Key     string `koanf:"key"`
}

// JWTSection configures token signing and validation.
type JWTSection struct {
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
	Secret   string `koanf:"secret"`

	// Issuers and Audiences are extra values accepted on validation.
	Issuers   []string `koanf:"issuers"`
	Audiences []string `koanf:"audiences"`

	// Encrypt wraps issued tokens in a JWE.
	Encrypt bool `koanf:"encrypt"`
}

// SessionSection configures the session store and login lifetimes.
type SessionSection struct {
	// Store is the backend DSN (memory://, badger:///dir, redis://, postgres://).
	Store string `koanf:"store"`

	// Prefix namespaces redis keys. Empty uses the backend default.
	Prefix string `koanf:"prefix"`

	// Table is the postgres table, optionally schema-qualified.
	Table string `koanf:"table"`

	// Migrate creates the postgres table and index on startup.
	Migrate bool `koanf:"migrate"`

	// Cookie is the session cookie name.
	Cookie string `koanf:"cookie"`

	TokenTTL   time.Duration `koanf:"tokenttl"`
	RefreshTTL time.Duration `koanf:"refreshttl"`
	HintMargin time.Duration `koanf:"hintmargin"`

	// Key enables at-rest encryption of stored claims.
	Key    string `koanf:"key"`
	Cipher string `koanf:"cipher"`

	// Salt for deriving the at-rest key. Empty uses adaptive.DefaultSalt.
	// Every process sharing a store needs the same value.
	Salt string `koanf:"salt"`
}

// SweepSection configures the retention sweeper.
type SweepSection struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	Retention time.Duration `koanf:"retention"`
	OnStartup bool          `koanf:"onstartup"`
}

// ClockSection shifts the service clock. Development only.
type ClockSection struct {
	Offset time.Duration `koanf:"offset"`
}

// DevAuthSection configures the developer authorizer at /auth/{name}.
type DevAuthSection struct {
	Enabled  bool          `koanf:"enabled"`
	Lifetime time.Duration `koanf:"lifetime"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}
