// Package store persists serialized model values in string key/value stores
// and binds a versioned.Model to one key.
//
// Store implementations only move strings. Decoding, migration and fallback
// stay in the model; a Binding reads the stored string, parses it with the
// model and on mutation serializes and writes back:
//
//	Store.Get -> Model.Parse -> value -> Model.Serialize -> Store.Set
//
// Available stores:
//   - MemoryStore for tests and examples.
//   - FileStore, one file per key with atomic replacement.
//   - SQLStore, a single table in any database/sql database (SQLite through
//     modernc.org/sqlite by default).
//   - RedisStore, keys under a prefix in a go-redis client.
package store
