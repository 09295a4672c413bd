// Package fetcher turns a capture URL into lazy, newest-first record streams.
//
// Each pool is read with its own cursor paginator. When more than one pool is
// requested the streams are merged by descending id. Every request made by a
// Fetcher waits on one shared pacer, so pools fetched together still respect
// the upstream's request interval.
package fetcher
