package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Error codes carried by ProviderError.
const (
	CodeNotConfigured  = "not_configured"
	CodeTimeout        = "timeout"
	CodeUnavailable    = "unavailable"
	CodeAuthentication = "authentication"
	CodeRateLimited    = "rate_limited"
	CodeInvalidRequest = "invalid_request"
	CodeServerError    = "server_error"
	CodeBadResponse    = "bad_response"
)

// ProviderError is a text generation failure with a stable code.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(code, msg string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: msg, Err: err}
}

// ErrorCode returns the ProviderError code in err's chain, or "".
func ErrorCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// statusError is a non-200 reply from the Gemini REST API.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.StatusCode, e.Body)
}

// mapError translates transport, status and breaker errors into ProviderError.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newProviderError(CodeTimeout, "request timed out or cancelled", err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return newProviderError(CodeUnavailable, "circuit breaker open", err)
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 401 || se.StatusCode == 403:
			return newProviderError(CodeAuthentication, se.Body, err)
		case se.StatusCode == 429:
			return newProviderError(CodeRateLimited, se.Body, err)
		case se.StatusCode >= 500:
			return newProviderError(CodeServerError, se.Body, err)
		default:
			return newProviderError(CodeInvalidRequest, se.Body, err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return newProviderError(CodeUnavailable, "gemini unreachable", err)
	}
	if strings.Contains(msg, "Client.Timeout") {
		return newProviderError(CodeTimeout, "request timed out", err)
	}
	return newProviderError(CodeServerError, "gemini error", err)
}

// countsAsFailure reports whether err should trip the breaker. Caller
// mistakes and cancellations say nothing about provider health.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch ErrorCode(err) {
	case CodeInvalidRequest, CodeAuthentication:
		return false
	}
	return true
}
