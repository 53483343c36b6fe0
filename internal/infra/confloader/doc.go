// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides, usually command-line flags (WithOverrides)
//  2. AUTHRELAY_* environment variables, where AUTHRELAY_JWT_SECRET sets jwt.secret
//  3. The YAML configuration file
//  4. Values already present in the target struct
//
// Watcher reports writes to the configuration file so callers can apply
// the settings that are safe to change at runtime.
package confloader
