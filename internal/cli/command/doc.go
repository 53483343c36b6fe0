// Package command defines the authrelay-cli commands.
//
// The CLI works directly on the configured token secret and session store,
// reading the same config file and AUTHRELAY_* environment as the server:
//
//	authrelay-cli secret generate
//	authrelay-cli token issue --claim name=ada --claim role=Developer --ttl 1h
//	authrelay-cli token inspect "$TOKEN"
//	authrelay-cli session get 6f1c...
//	authrelay-cli session sweep --retention 24h
package command
