// Package handler implements the HTTP endpoints.
//
//   - auth.go: PATCH /login and PATCH /logout
//   - devauth.go: GET /auth/{name}, the developer authorizer
//   - whoami.go: GET /whoami
//   - health.go: GET /health and GET /ready
//
// Service errors are mapped to HTTP statuses from the numeric suffix of
// their error code, so AR-STOR-5030 becomes 503.
package handler
