// Package metric exposes AuthRelay's Prometheus metrics.
//
// A Registry owns a private prometheus.Registry with the Go and process
// collectors plus the login, token, session and HTTP series below. Storage
// backends register their own collectors through Registerer.
package metric
