package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr  = "127.0.0.1:5080"
	DefaultRateLimit = 10
	DefaultBurst     = 20

	DefaultIssuer   = "authrelay"
	DefaultAudience = "authrelay"

	DefaultStore      = "memory://"
	DefaultCookie     = "AuthID"
	DefaultTokenTTL   = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultHintMargin = 30 * time.Second
	DefaultCipher     = "auto"

	DefaultSweepInterval  = 24 * time.Hour
	DefaultSweepRetention = 24 * time.Hour

	DefaultDevAuthLifetime = 365 * 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration. The shared secret has
// no default.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Address:   DefaultHTTPAddr,
				RateLimit: DefaultRateLimit,
				Burst:     DefaultBurst,
			},
		},
		JWT: JWTSection{
			Issuer:   DefaultIssuer,
			Audience: DefaultAudience,
		},
		Session: SessionSection{
			Store:      DefaultStore,
			Migrate:    true,
			Cookie:     DefaultCookie,
			TokenTTL:   DefaultTokenTTL,
			RefreshTTL: DefaultRefreshTTL,
			HintMargin: DefaultHintMargin,
			Cipher:     DefaultCipher,
		},
		Sweep: SweepSection{
			Enabled:   true,
			Interval:  DefaultSweepInterval,
			Retention: DefaultSweepRetention,
		},
		DevAuth: DevAuthSection{
			Lifetime: DefaultDevAuthLifetime,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
