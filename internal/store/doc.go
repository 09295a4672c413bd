// Package store persists gacha records and their ingestion batches.
//
// Implementations:
//   - Postgres: pgx transactions, one pgx.Batch per insert
//   - Memory: in-process maps, used for dry runs and tests
//
// Records are append-only. An insert either commits all of its rows plus one
// batch row carrying the real count, or nothing.
package store
