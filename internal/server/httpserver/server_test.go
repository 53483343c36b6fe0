package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/server/httpserver/handler"
	"github.com/yndnr/authrelay-go/internal/storage/memory"
	"github.com/yndnr/authrelay-go/internal/telemetry/metric"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

const testSecret = "router-test-secret-0123456789abcdef!"

func newTestTokens(t *testing.T) (*service.TokenManager, clock.Clock) {
	t.Helper()
	clk := clock.Fixed(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	tokens, err := service.NewTokenManager(service.TokenConfig{
		Issuer:   "authrelay",
		Audience: "authrelay",
		Secret:   testSecret,
	}, clk)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return tokens, clk
}

func newTestRouter(t *testing.T, devAuth bool) (http.Handler, *service.TokenManager, *memory.Store) {
	t.Helper()
	tokens, clk := newTestTokens(t)
	store := memory.New()
	sessions := service.NewSessionService(store, clk, nil)
	reg := metric.NewRegistry()

	h := handler.New(handler.Config{
		Resolver: service.NewResolver(tokens, sessions, clk, service.ResolverConfig{}),
		Tokens:   tokens,
		Store:    store,
		Metrics:  reg,
		Logger:   discardLogger(),
		Wall:     clk,
	})
	router := NewRouter(&RouterConfig{
		Handler:            h,
		Tokens:             tokens,
		Metrics:            reg,
		Logger:             discardLogger(),
		CORSAllowedOrigins: []string{"https://app.example"},
		RateLimit:          100,
		Burst:              100,
		DevAuth:            devAuth,
	})
	return router, tokens, store
}

func do(t *testing.T, h http.Handler, method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "https://auth.example"+path, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "AuthID" {
			return c
		}
	}
	return nil
}

func TestRouter_LoginLogoutScenario(t *testing.T) {
	router, tokens, store := newTestRouter(t, false)

	assertion, err := tokens.Generate(domain.ClaimSet{domain.NewClaim(domain.ClaimRole, "Developer")}, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	// Login with the assertion token
	rec := do(t, router, http.MethodPatch, "/login", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+assertion)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rec.Code, rec.Body)
	}
	var body handler.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	claims, ok := tokens.Validate(body.Token)
	if !ok || !claims.Has(domain.ClaimRole, "Developer") {
		t.Fatalf("bearer claims = %v, %v", claims, ok)
	}
	cookie := authCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if store.Count() != 1 {
		t.Fatalf("stored sessions = %d", store.Count())
	}

	// The bearer token works on /whoami
	rec = do(t, router, http.MethodGet, "/whoami", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+body.Token)
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Developer") {
		t.Errorf("whoami = %d %s", rec.Code, rec.Body)
	}

	// Logout drops the session and clears the cookie
	rec = do(t, router, http.MethodPatch, "/logout", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "AuthID", Value: cookie.Value})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if c := authCookie(rec); c == nil || c.Value != "" {
		t.Errorf("logout cookie = %+v", c)
	}
	if store.Count() != 0 {
		t.Errorf("stored sessions after logout = %d", store.Count())
	}

	// Resuming with the old cookie is rejected
	rec = do(t, router, http.MethodPatch, "/login", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "AuthID", Value: cookie.Value})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("resume after logout status = %d, want 401", rec.Code)
	}
}

func TestRouter_ResumeRotatesCookie(t *testing.T) {
	router, tokens, store := newTestRouter(t, false)
	assertion, _ := tokens.Generate(domain.ClaimSet{domain.NewClaim(domain.ClaimName, "ada")}, time.Minute)

	first := authCookie(do(t, router, http.MethodPatch, "/login", func(r *http.Request) {
		r.Header.Set("Authorization", assertion)
	}))
	rec := do(t, router, http.MethodPatch, "/login", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "AuthID", Value: first.Value})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}
	second := authCookie(rec)
	if second == nil || second.Value == first.Value {
		t.Errorf("cookie not rotated: %v -> %v", first, second)
	}
	if store.Count() != 1 {
		t.Errorf("stored sessions = %d, want 1 after rotation", store.Count())
	}
	if _, err := store.Get(context.Background(), first.Value); err == nil {
		t.Error("old session should be dropped")
	}
}

func TestRouter_DevAuth(t *testing.T) {
	off, _, _ := newTestRouter(t, false)
	if rec := do(t, off, http.MethodGet, "/auth/ada", nil); rec.Code != http.StatusNotFound {
		t.Errorf("dev auth disabled status = %d, want 404", rec.Code)
	}

	on, tokens, _ := newTestRouter(t, true)
	rec := do(t, on, http.MethodGet, "/auth/ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dev auth status = %d", rec.Code)
	}
	claims, ok := tokens.Validate(rec.Body.String())
	if !ok || !claims.Has(domain.ClaimName, "ada") {
		t.Errorf("dev token claims = %v", claims)
	}
}

func TestRouter_MethodsAndProbes(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	if rec := do(t, router, http.MethodPost, "/login", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /login status = %d, want 405", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}

	do(t, router, http.MethodPatch, "/login", nil)
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `authrelay_logins_total{outcome="rejected",source="none"} 1`) {
		t.Errorf("metrics missing rejected login:\n%s", rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `authrelay_http_requests_total{code="401",method="PATCH",route="/login"} 1`) {
		t.Error("metrics missing request counter")
	}

	rec = do(t, router, http.MethodOptions, "/login", func(r *http.Request) {
		r.Header.Set("Origin", "https://app.example")
		r.Header.Set("Access-Control-Request-Method", "PATCH")
	})
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln, "", "") }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Serve did not return after Shutdown")
	}
}
