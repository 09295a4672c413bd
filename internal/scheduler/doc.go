// Package scheduler runs periodic incremental refreshes.
//
// The scheduler:
//   - Fires on a cron spec (default every 6 hours)
//   - Refreshes every configured account with bounded concurrency
//   - Skips a cycle while the previous one is still running
//   - Logs per-account failures and keeps going
package scheduler
