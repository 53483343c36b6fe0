// Package domain defines the core domain models for authrelay.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Claim, ClaimSet: typed identity assertions carried by tokens
//   - Session: the server-side record resolved from a refresh cookie
//   - Errors: domain error codes shared by services and transports
package domain
