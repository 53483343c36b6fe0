// Package config defines the authrelay-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation run before the server starts
//   - sanitize.go: copy with secrets masked, for logging
//
// Values are loaded by internal/infra/confloader. Every key is a single
// lowercase word so AUTHRELAY_SESSION_TOKENTTL maps to session.tokenttl.
package config
