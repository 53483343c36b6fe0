// Command authrelay-server runs the login relay.
//
// It exchanges an assertion token or a session cookie on PATCH /login for
// a short-lived bearer token and a rotated session cookie, and drops the
// session on PATCH /logout.
//
// Usage:
//
//	authrelay-server --config /etc/authrelay/config.yaml
//	AUTHRELAY_JWT_SECRET=... authrelay-server --store badger:///var/lib/authrelay
//
// Changing log.level in the config file takes effect without a restart.
package main
