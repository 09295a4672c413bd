// Package syncer keeps the local record store in step with the upstream.
//
// A refresh for one account:
//   - takes the account lock
//   - resolves the capture URL and checks it belongs to the account
//   - fetches every pool newer than the newest stored record
//   - trims anything already stored
//   - re-expresses times in the timezone pinned by earlier batches
//   - writes the new records as one batch, or nothing at all
//
// Cancellation at any point before the final write leaves the store
// untouched.
package syncer
