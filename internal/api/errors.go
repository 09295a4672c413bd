package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL is matched by every *URLError.
	ErrInvalidURL = errors.New("invalid capture url")

	// ErrAuth is matched by a *RetcodeError for an invalid or expired authkey.
	ErrAuth = errors.New("authkey rejected")

	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("transport error")
)

// Upstream retcodes.
const (
	RetcodeOK             = 0
	RetcodeInvalidAuthKey = -100
	RetcodeAuthKeyExpired = -101
	RetcodeInvalidLang    = -108
	RetcodeTooFrequent    = -110
	RetcodeInvalidGameBiz = -111
)

// APIError represents an HTTP-level error from the upstream.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gacha api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// RetcodeError is a well-formed response whose retcode is not zero.
type RetcodeError struct {
	Retcode int
	Message string
}

func (e *RetcodeError) Error() string {
	return fmt.Sprintf("gacha api retcode %d (%s): %s", e.Retcode, retcodeText(e.Retcode), e.Message)
}

// Is matches ErrAuth for authkey failures.
func (e *RetcodeError) Is(target error) bool {
	if target == ErrAuth {
		return e.Retcode == RetcodeInvalidAuthKey || e.Retcode == RetcodeAuthKeyExpired
	}
	return false
}

// IsRetryable returns true for rate limiting.
func (e *RetcodeError) IsRetryable() bool {
	return e.Retcode == RetcodeTooFrequent
}

func retcodeText(code int) string {
	switch code {
	case RetcodeInvalidAuthKey:
		return "invalid authkey"
	case RetcodeAuthKeyExpired:
		return "authkey expired"
	case RetcodeInvalidLang:
		return "invalid language"
	case RetcodeTooFrequent:
		return "too frequent"
	case RetcodeInvalidGameBiz:
		return "invalid game_biz"
	}
	return "unknown"
}

// URLError reports a capture URL that cannot be used.
type URLError struct {
	Missing []string
	Reason  string
}

func (e *URLError) Error() string {
	if len(e.Missing) > 0 {
		return "invalid capture url: missing " + strings.Join(e.Missing, ", ")
	}
	return "invalid capture url: " + e.Reason
}

func (e *URLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// TransportError wraps a network failure talking to the upstream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
