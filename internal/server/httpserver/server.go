package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server wraps http.Server with the timeouts AuthRelay uses.
type Server struct {
	httpServer *http.Server
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    32 << 10,
		},
	}
}

// SetTLSConfig makes Serve use TLS with cfg. Certificates may come from
// cfg.GetCertificate, in which case Serve takes empty file names.
func (s *Server) SetTLSConfig(cfg *tls.Config) {
	s.httpServer.TLSConfig = cfg
}

// Serve accepts connections on ln until Shutdown. TLS is used when both
// certFile and keyFile are set or a TLS config was installed.
func (s *Server) Serve(ln net.Listener, certFile, keyFile string) error {
	var err error
	if (certFile != "" && keyFile != "") || s.httpServer.TLSConfig != nil {
		err = s.httpServer.ServeTLS(ln, certFile, keyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe(certFile, keyFile string) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln, certFile, keyFile)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
