// Package memory provides an in-memory session table.
//
// Records live in a sharded concurrent map, so requests for different
// session ids never contend on a global lock. Contents are lost on restart,
// which makes this backend suitable for development and tests.
package memory
