// Package model defines the data types shared by the fetcher, the sync
// engine, the store and the interchange formats.
//
// Conventions:
//   - Record ids: decimal strings, compared numerically (CompareID)
//   - Record times: wall clock in TimeLayout, in the account's pinned timezone
//   - Timezones: signed whole-hour UTC offsets
package model
