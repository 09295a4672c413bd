// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Pages and records fetched per pool
//   - Records inserted by syncs and imports
//   - Refresh runs by mode and result, with duration
package metrics
