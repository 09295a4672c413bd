// Package capture locates the capture URL that authorizes record fetches.
package capture
