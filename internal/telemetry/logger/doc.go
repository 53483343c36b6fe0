// Package logger provides structured logging for AuthRelay.
//
// It wraps log/slog with JSON or text output, a process-wide level that can
// be changed at runtime, request ID propagation through context, and
// redaction of credentials (bearer tokens, shared secrets, session cookies)
// before anything reaches the output.
package logger
