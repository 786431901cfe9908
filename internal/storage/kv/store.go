// Package kv is the durable key-value layer every other store persists
// through. Values are opaque byte blobs (JSON documents in practice); there is
// no atomicity across keys unless a caller opts into Handle.WithTx.
//
// Backends:
//   - SQLStore on SQLite (modernc.org/sqlite), the default local store;
//   - SQLStore on PostgreSQL (pgx) for shared kiosk deployments;
//   - MemoryStore for tests and throwaway sessions.
//
// JSONStore layers JSON encoding on top of any Store and turns corrupt
// documents into "absent" after logging them.
package kv

import "context"

// Store is the raw key-value contract.
//
// Get returns (nil, nil) when the key does not exist. Remove and Clear are
// idempotent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
