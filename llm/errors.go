package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// MaxErrorBodyBytes bounds how much of a provider response body is kept on an Error.
const MaxErrorBodyBytes = 512

const redacted = "[REDACTED]"

// Error represents a provider-neutral LLM error.
type Error struct {
	Type        ErrorType
	Message     string
	Retryable   bool
	StatusCode  int
	Body        string // truncated, credential-scrubbed response body
	ProviderErr error  // Original provider-specific error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeProvider      ErrorType = "provider"
)

// Error implements the error interface.
// Provider errors never echo the wrapped error, whose text may contain a raw body.
func (e *Error) Error() string {
	if e.Type == ErrorTypeProvider {
		msg := e.Message
		if e.StatusCode != 0 {
			msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
		}
		if e.Body != "" {
			msg += ": " + e.Body
		}
		return msg
	}
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

func errorType(err error) (ErrorType, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type, true
	}
	return "", false
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeConfiguration
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not-found error.
func IsNotFoundError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeNotFound
}

// IsNetworkError checks if an error is a network error. Timeouts count as network errors.
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrorTypeNetwork || t == ErrorTypeTimeout)
}

// IsTimeoutError checks if an error is a timeout.
func IsTimeoutError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeTimeout
}

// IsProviderError checks if an error is a provider error.
func IsProviderError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeProvider
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// StatusCode extracts the HTTP status code carried by an error, or 0.
func StatusCode(err error) int {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.StatusCode
	}
	return 0
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeConfiguration, Message: message, ProviderErr: cause}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, ProviderErr: cause}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message, ProviderErr: cause}
}

// NewNetworkError creates a new network error. Deadline and timeout failures are
// reported with ErrorTypeTimeout.
func NewNetworkError(message string, cause error) *Error {
	typ := ErrorTypeNetwork
	if isTimeout(cause) {
		typ = ErrorTypeTimeout
		message += ": request timed out"
	}
	return &Error{Type: typ, Message: message, Retryable: true, ProviderErr: cause}
}

// NewProviderError creates a new provider error. The body is scrubbed of the given
// secrets and truncated before being stored.
func NewProviderError(message string, statusCode int, body []byte, cause error, secrets ...string) *Error {
	return &Error{
		Type:        ErrorTypeProvider,
		Message:     message,
		Retryable:   statusCode >= 500 || statusCode == 429,
		StatusCode:  statusCode,
		Body:        TruncateBody(ScrubSecrets(string(body), secrets...)),
		ProviderErr: cause,
	}
}

// NewUnexpectedResponseError reports a success status whose body lacks required fields.
func NewUnexpectedResponseError(statusCode int, body []byte, secrets ...string) *Error {
	return NewProviderError("unexpected response shape", statusCode, body, nil, secrets...)
}

// IsTransportError reports whether err came from the transport rather than from a
// provider response: connection failures, DNS, timeouts and cancellations.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ScrubSecrets replaces every occurrence of the given non-empty secrets with a marker.
func ScrubSecrets(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

// TruncateBody shortens a body to MaxErrorBodyBytes, marking the cut.
func TruncateBody(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= MaxErrorBodyBytes {
		return s
	}
	cut := MaxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
