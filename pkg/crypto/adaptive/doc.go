// Package adaptive provides the AEAD used to seal session claims at rest.
//
// Supported algorithms:
//
//   - AES-256-GCM: preferred where the Go runtime has hardware AES
//   - ChaCha20-Poly1305: fallback for other architectures
//
// Keys are stretched from an operator-supplied passphrase with Argon2id
// over a fixed or configured salt, so every process sharing a store derives
// the same key.
//
// Usage:
//
//	c, err := adaptive.FromPassphrase(pass, nil, adaptive.CipherAuto)
//	sealed, err := c.SealString(plaintext, sessionID)
//	plaintext, err := c.OpenString(sealed, sessionID)
package adaptive
