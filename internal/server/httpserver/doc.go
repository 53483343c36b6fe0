// Package httpserver serves the AuthRelay HTTP API on net/http.
//
// Routes:
//
//   - PATCH /login, PATCH /logout: session cookie and bearer token exchange
//   - GET /auth/{name}: developer authorizer (devauth.enabled only)
//   - GET /whoami: claims of the presented bearer token
//   - GET /health, GET /ready, GET /metrics
//
// Each route runs Recover, RequestID, Metrics and Audit, then CORS and a
// per-IP rate limit where the route needs them.
package httpserver
