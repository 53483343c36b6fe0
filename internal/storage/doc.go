// Package storage opens the session table behind the session service.
//
// Backends are selected by the scheme of the configured DSN:
//
//   - memory://               sharded in-process map, lost on restart
//   - badger:///var/lib/x     embedded Badger database (badger://?inmemory=true for tests)
//   - redis://host:6379/0     Redis hash per session plus a creation index
//   - postgres://user@host/db PostgreSQL table
//
// Every backend satisfies the same conformance suite in storagetest.
package storage
