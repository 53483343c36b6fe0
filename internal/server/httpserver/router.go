package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/server/httpserver/handler"
	"github.com/yndnr/authrelay-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler *handler.Handler
	Tokens  *service.TokenManager
	Metrics *metric.Registry
	Logger  *slog.Logger

	// CORSAllowedOrigins may call /login and /logout with credentials.
	CORSAllowedOrigins []string

	// RateLimit and Burst bound /login and /auth/* per client IP.
	RateLimit float64
	Burst     int

	// ClientIP resolves client addresses for limiting and audit. Nil means
	// the direct peer address is always used.
	ClientIP *ClientIP

	// DevAuth mounts GET /auth/{name}.
	DevAuth bool
}

// NewRouter builds the mux with every route and its middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := cfg.Handler

	// Order: Recover -> RequestID -> Metrics -> Audit -> CORS -> RateLimit -> Handler
	route := func(name string, fn http.HandlerFunc, extra ...Middleware) http.Handler {
		mws := []Middleware{
			Recover(log),
			RequestID(),
			Metrics(cfg.Metrics, name),
			Audit(log, cfg.ClientIP),
		}
		return Chain(fn, append(mws, extra...)...)
	}
	limited := RateLimit(cfg.RateLimit, cfg.Burst, cfg.ClientIP, cfg.Metrics)
	cors := CORS(cfg.CORSAllowedOrigins)

	mux := http.NewServeMux()

	mux.Handle("PATCH /login", route("/login", h.Login, cors, limited))
	mux.Handle("PATCH /logout", route("/logout", h.Logout, cors))
	mux.Handle("OPTIONS /login", route("/login", preflightOnly, cors))
	mux.Handle("OPTIONS /logout", route("/logout", preflightOnly, cors))

	if cfg.DevAuth {
		mux.Handle("GET /auth/{name}", route("/auth", h.DevAuth, cors, limited))
		log.Warn("developer authorizer enabled", "path", "/auth/{name}")
	}

	mux.Handle("GET /whoami", route("/whoami", h.WhoAmI, cors, Bearer(cfg.Tokens, cfg.Metrics)))

	mux.Handle("GET /health", Chain(http.HandlerFunc(h.Health), Recover(log), RequestID()))
	mux.Handle("GET /ready", Chain(http.HandlerFunc(h.Ready), Recover(log), RequestID()))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return mux
}

// preflightOnly answers OPTIONS requests that CORS did not terminate.
func preflightOnly(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
