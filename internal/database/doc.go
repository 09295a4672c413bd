// Package database provides the PostgreSQL connection pool and schema.
//
// Tables:
//   - gacha_record_item: one row per pull, keyed by (uid, id)
//   - gacha_record_batch: one row per ingestion that added records, keyed by (uid, batch_id)
//
// Migrate is idempotent and safe to run on every start.
package database
