// Package cmap provides a sharded concurrent map.
//
// Each shard has its own RWMutex, so operations on keys in different shards
// never contend. Iteration and DeleteFunc lock one shard at a time and do not
// see a consistent snapshot across shards.
//
// Usage:
//
//	m := cmap.New[string, *Session]()
//	m.Set("key", session)
//	val, ok := m.Get("key")
package cmap
