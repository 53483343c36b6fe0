package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/authrelay-go/internal/cli/output"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/infra/buildinfo"
	"github.com/yndnr/authrelay-go/internal/infra/confloader"
	"github.com/yndnr/authrelay-go/internal/server/config"
	"github.com/yndnr/authrelay-go/internal/storage"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "authrelay-cli",
		Usage:   "AuthRelay token and session administration",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SecretCommand(),
			TokenCommand(),
			SessionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// flagKeys maps global flags to the config keys they override.
var flagKeys = map[string]string{
	"secret":       "jwt.secret",
	"issuer":       "jwt.issuer",
	"audience":     "jwt.audience",
	"encrypt":      "jwt.encrypt",
	"store":        "session.store",
	"session-key":  "session.key",
	"session-salt": "session.salt",
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the server configuration file",
			EnvVars: []string{"AUTHRELAY_CONFIG"},
		},
		&cli.StringFlag{Name: "secret", Usage: "Token signing secret (jwt.secret)"},
		&cli.StringFlag{Name: "issuer", Usage: "Token issuer (jwt.issuer)"},
		&cli.StringFlag{Name: "audience", Usage: "Primary audience (jwt.audience)"},
		&cli.BoolFlag{Name: "encrypt", Usage: "Encrypt issued tokens (jwt.encrypt)"},
		&cli.StringFlag{Name: "store", Usage: "Session store DSN (session.store)"},
		&cli.StringFlag{Name: "session-key", Usage: "At-rest claims key (session.key)"},
		&cli.StringFlag{Name: "session-salt", Usage: "At-rest key derivation salt (session.salt)"},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// loadConfig layers defaults, the config file, the environment and any
// global flags given on the command line.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	overrides := map[string]any{}
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		if flag == "encrypt" {
			overrides[key] = c.Bool(flag)
		} else {
			overrides[key] = c.String(flag)
		}
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithOverrides(overrides),
	)
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newTokenManager(cfg *config.ServerConfig) (*service.TokenManager, error) {
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("no signing secret: set --secret, jwt.secret or AUTHRELAY_JWT_SECRET")
	}
	return service.NewTokenManager(service.TokenConfig{
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		Secret:         cfg.JWT.Secret,
		ValidIssuers:   cfg.JWT.Issuers,
		ValidAudiences: cfg.JWT.Audiences,
		EncryptClaims:  cfg.JWT.Encrypt,
	}, clock.System{})
}

// openSessions opens the store and wraps it in a SessionService. The
// returned func closes the store.
func openSessions(ctx context.Context, cfg *config.ServerConfig) (*service.SessionService, func() error, error) {
	cipher, err := cfg.Session.SessionCipher()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(ctx, cfg.Session.Store,
		cfg.Session.StoreOptions(slog.New(slog.NewTextHandler(io.Discard, nil)), nil))
	if err != nil {
		return nil, nil, err
	}
	return service.NewSessionService(store, clock.System{}, cipher), store.Close, nil
}

// render writes data in the --output format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}
