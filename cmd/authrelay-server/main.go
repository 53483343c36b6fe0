package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/infra/buildinfo"
	"github.com/yndnr/authrelay-go/internal/infra/confloader"
	"github.com/yndnr/authrelay-go/internal/infra/shutdown"
	"github.com/yndnr/authrelay-go/internal/infra/tlscert"
	"github.com/yndnr/authrelay-go/internal/server/config"
	"github.com/yndnr/authrelay-go/internal/server/httpserver"
	"github.com/yndnr/authrelay-go/internal/server/httpserver/handler"
	"github.com/yndnr/authrelay-go/internal/storage"
	"github.com/yndnr/authrelay-go/internal/storage/memory"
	"github.com/yndnr/authrelay-go/internal/telemetry/logger"
	"github.com/yndnr/authrelay-go/internal/telemetry/metric"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configFile  string
	showVersion bool
	addr        string
	store       string
	logLevel    string
	devAuth     bool
}

func parseFlags() (*flags, map[string]any) {
	f := &flags{}
	flag.StringVar(&f.configFile, "config", "", "Path to configuration file")
	flag.BoolVar(&f.showVersion, "version", false, "Show version information")
	flag.StringVar(&f.addr, "addr", "", "Listen address (overrides server.http.address)")
	flag.StringVar(&f.store, "store", "", "Session store DSN (overrides session.store)")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (overrides log.level)")
	flag.BoolVar(&f.devAuth, "dev-auth", false, "Enable the developer authorizer at /auth/{name}")
	flag.Parse()

	// Only flags given on the command line override other sources.
	overrides := map[string]any{}
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "addr":
			overrides["server.http.address"] = f.addr
		case "store":
			overrides["session.store"] = f.store
		case "log-level":
			overrides["log.level"] = f.logLevel
		case "dev-auth":
			overrides["devauth.enabled"] = f.devAuth
		}
	})
	return f, overrides
}

func run() error {
	f, overrides := parseFlags()
	if f.showVersion {
		fmt.Printf("authrelay-server %s\n", buildinfo.String())
		return nil
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(f.configFile),
		confloader.WithOverrides(overrides),
	)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logCloser, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	info := buildinfo.Get()
	log.Info("starting authrelay-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", f.configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	metrics := metric.NewRegistry()

	store, err := storage.Open(ctx, cfg.Session.Store, cfg.Session.StoreOptions(log, metrics.Registerer()))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if mem, ok := store.(*memory.Store); ok {
		metrics.Registerer().MustRegister(metric.NewCollector(mem))
	}

	clk := initClock(cfg, log)

	svc, err := initServices(cfg, store, clk, metrics, log)
	if err != nil {
		store.Close()
		return fmt.Errorf("init services: %w", err)
	}

	clientIP, err := httpserver.NewClientIP(cfg.Server.HTTP.Proxies)
	if err != nil {
		store.Close()
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler: handler.New(handler.Config{
			Resolver:        svc.resolver,
			Tokens:          svc.tokens,
			Store:           store,
			Metrics:         metrics,
			Logger:          log,
			CookieName:      cfg.Session.Cookie,
			DevAuthLifetime: cfg.DevAuth.Lifetime,
			Wall:            clock.System{},
			Version:         info.Version,
		}),
		Tokens:             svc.tokens,
		Metrics:            metrics,
		Logger:             log,
		CORSAllowedOrigins: cfg.Server.HTTP.Origins,
		RateLimit:          cfg.Server.HTTP.RateLimit,
		Burst:              cfg.Server.HTTP.Burst,
		ClientIP:           clientIP,
		DevAuth:            cfg.DevAuth.Enabled,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Address, router)

	if cfg.Server.HTTP.TLS.Enabled {
		certs, err := tlscert.New(cfg.Server.HTTP.TLS.Cert, cfg.Server.HTTP.TLS.Key, tlscert.WithLogger(log))
		if err != nil {
			store.Close()
			return err
		}
		httpServer.SetTLSConfig(certs.TLSConfig())
		go func() {
			if err := certs.Run(ctx); err != nil {
				log.Error("tls certificate watcher stopped", "error", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Address)
	if err != nil {
		store.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.HTTP.Address, err)
	}

	watcher := watchConfig(loader, log)

	// Hooks run in reverse: HTTP first, store last.
	sh := shutdown.NewHandler(30*time.Second, log)
	sh.OnShutdown("store", func(context.Context) error { return store.Close() })
	if svc.sweeper != nil {
		svc.sweeper.Start(ctx)
		sh.OnShutdown("sweeper", func(context.Context) error {
			svc.sweeper.Stop()
			return nil
		})
	}
	if watcher != nil {
		sh.OnShutdown("config-watcher", func(context.Context) error { return watcher.Stop() })
	}
	sh.OnShutdown("http", httpServer.Shutdown)

	go func() {
		log.Info("http server listening", "addr", ln.Addr().String(), "tls", cfg.Server.HTTP.TLS.Enabled)
		if err := httpServer.Serve(ln, "", ""); err != nil {
			log.Error("http server error", "error", err)
			cancel(err)
		}
	}()

	err = sh.Wait(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = errors.Join(cause, err)
	}
	if err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (*slog.Logger, io.Closer, error) {
	l, closer, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.SetDefault(l)
	return l.Slog(), closer, nil
}

// initClock returns the service clock, shifted when clock.offset is set.
func initClock(cfg *config.ServerConfig, log *slog.Logger) clock.Clock {
	if cfg.Clock.Offset == 0 {
		return clock.System{}
	}
	c := clock.NewSpoofable(clock.System{})
	c.Spoof(cfg.Clock.Offset)
	log.Warn("service clock shifted", "offset", cfg.Clock.Offset)
	return c
}

type services struct {
	tokens   *service.TokenManager
	sessions *service.SessionService
	resolver *service.Resolver
	sweeper  *service.Sweeper
}

func initServices(cfg *config.ServerConfig, store storage.Repository, clk clock.Clock, metrics *metric.Registry, log *slog.Logger) (*services, error) {
	tokens, err := service.NewTokenManager(service.TokenConfig{
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		Secret:         cfg.JWT.Secret,
		ValidIssuers:   cfg.JWT.Issuers,
		ValidAudiences: cfg.JWT.Audiences,
		EncryptClaims:  cfg.JWT.Encrypt,
	}, clk)
	if err != nil {
		return nil, err
	}

	cipher, err := cfg.Session.SessionCipher()
	if err != nil {
		return nil, fmt.Errorf("session cipher: %w", err)
	}
	if cipher != nil {
		log.Info("session claims encrypted at rest", "cipher", string(cipher.Type()))
	}

	sessions := service.NewSessionService(store, clk, cipher)
	s := &services{
		tokens:   tokens,
		sessions: sessions,
		resolver: service.NewResolver(tokens, sessions, clk, service.ResolverConfig{
			TokenLifetime:   cfg.Session.TokenTTL,
			RefreshLifetime: cfg.Session.RefreshTTL,
			HintMargin:      cfg.Session.HintMargin,
		}),
	}

	if cfg.Sweep.Enabled {
		s.sweeper = service.NewSweeper(sessions, service.SweeperConfig{
			Interval:     cfg.Sweep.Interval,
			Retention:    cfg.Sweep.Retention,
			RunOnStartup: cfg.Sweep.OnStartup,
		}, log, func(deleted int, _ time.Duration, err error) {
			metrics.RecordSweep(deleted, err)
		})
	}

	log.Info("services initialized",
		"issuer", tokens.Issuer(),
		"audience", tokens.Audience(),
		"encrypted_tokens", tokens.Encrypted(),
		"sweeper", cfg.Sweep.Enabled)
	return s, nil
}

// watchConfig applies log.level changes from the config file at runtime.
// Other settings need a restart.
func watchConfig(loader *confloader.Loader, log *slog.Logger) *confloader.Watcher {
	if loader.FilePath() == "" {
		return nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(loader.FilePath()); err != nil {
		log.Warn("config watcher unavailable", "error", err)
		_ = w.Stop()
		return nil
	}
	w.OnChange(func(path string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Error("config reload failed", "file", path, "error", err)
			return
		}
		if next.Log.Level == logger.GetLevel() {
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Error("config reload rejected", "key", "log.level", "error", err)
			return
		}
		log.Info("log level changed", "level", next.Log.Level)
	})
	w.StartAsync()
	return w
}
