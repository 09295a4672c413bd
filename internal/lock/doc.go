// Package lock provides per-account mutual exclusion for syncs and imports.
//
// Local serves a single process. Redis uses SET NX with a random token and
// releases through a compare-and-delete script, so an expired lock taken over
// by another holder is never deleted by the previous one.
package lock
