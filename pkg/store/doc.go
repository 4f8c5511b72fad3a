// Package store persists graph documents under string keys.
//
// A [Store] is a flat key-value namespace of encoded graph documents. The
// package ships several backends behind the same interface:
//
//   - [FileStore]: one file per key below a directory, for the CLI
//   - [MemoryStore]: a map, for tests and ephemeral servers
//   - [RedisStore]: Redis strings under a key prefix
//   - [MongoStore]: one document per key in a MongoDB collection
//   - [PostgresStore]: one row per key in a PostgreSQL table
//   - [S3Store]: one object per key in an S3-compatible bucket
//
// [Open] builds a backend from a [Config], wrapped with [Instrument] so
// that every operation reports to the observability hooks and concurrent
// reads of the same key are collapsed into one backend call.
//
// [SaveGraph] and [LoadGraph] connect a store to the node-graph engine:
// they snapshot and restore graphs through the JSON document format of
// package io and return the content hash of the stored bytes.
//
// # Keys
//
// Keys are validated with [errors.ValidateGraphKey] before any backend is
// touched, so they are always safe as file names, object keys and row ids.
//
// [errors.ValidateGraphKey]: github.com/matzehuels/mixgraph/pkg/errors.ValidateGraphKey
package store
