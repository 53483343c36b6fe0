package tlscert

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoCertificate is returned by GetCertificate before a key pair loads.
var ErrNoCertificate = errors.New("tlscert: no certificate loaded")

// Reloader holds the current key pair and swaps it when the files change.
type Reloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reloader) { r.logger = l }
}

// WithDebounce sets how long to wait for writes to settle before reloading.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) { r.debounce = d }
}

// New loads the key pair and returns a Reloader serving it.
func New(certFile, keyFile string, opts ...Option) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the key pair from disk. The previous pair stays in use when
// loading fails.
func (r *Reloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("tlscert: load key pair: %w", err)
	}

	var notAfter time.Time
	if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
		cert.Leaf = leaf
		notAfter = leaf.NotAfter
	}

	r.mu.Lock()
	r.cert = &cert
	r.notAfter = notAfter
	r.mu.Unlock()

	r.logger.Info("tls certificate loaded", "cert_file", r.certFile, "not_after", notAfter)
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cert == nil {
		return nil, ErrNoCertificate
	}
	return r.cert, nil
}

// NotAfter returns the expiry of the current leaf certificate.
func (r *Reloader) NotAfter() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notAfter
}

// TLSConfig returns a server config backed by the reloader.
func (r *Reloader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: r.GetCertificate,
	}
}

// Run watches the certificate directories until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlscert: create watcher: %w", err)
	}
	defer w.Close()

	// Directories are watched so atomic renames are seen.
	watched := map[string]bool{}
	for _, f := range []string{r.certFile, r.keyFile} {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("tlscert: resolve %s: %w", f, err)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("tlscert: watch %s: %w", dir, err)
		}
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := r.Reload(); err != nil {
				r.logger.Error("tls certificate reload failed", "error", err, "cert_file", r.certFile)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("tls certificate watcher error", "error", err)
		}
	}
}
