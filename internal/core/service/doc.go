// Package service holds the token lifecycle and session resolution logic.
//
// This package contains:
//
//   - TokenManager: HS256 bearer tokens with optional JWE envelopes
//   - SessionService: claim sets stored under rotating refresh identifiers
//   - Resolver: login from an assertion token or a stored session
//   - Sweeper: periodic deletion of old session records
//
// Storage is consumed through SessionRepository. Time always comes from an
// injected clock.Clock.
package service
