package config

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/authrelay-go/internal/storage"
	"github.com/yndnr/authrelay-go/pkg/crypto/adaptive"
)

// StoreOptions maps the backend settings of the session section onto
// storage.Options.
func (s SessionSection) StoreOptions(log *slog.Logger, reg prometheus.Registerer) storage.Options {
	return storage.Options{
		Logger:          log,
		Registerer:      reg,
		RedisPrefix:     s.Prefix,
		PostgresTable:   s.Table,
		PostgresMigrate: s.Migrate,
	}
}

// SessionCipher returns the at-rest cipher, or nil when session.key is empty.
func (s SessionSection) SessionCipher() (*adaptive.Cipher, error) {
	if s.Key == "" {
		return nil, nil
	}
	typ, err := ParseCipher(s.Cipher)
	if err != nil {
		return nil, err
	}
	var salt []byte
	if s.Salt != "" {
		salt = []byte(s.Salt)
	}
	return adaptive.FromPassphrase(s.Key, salt, typ)
}
