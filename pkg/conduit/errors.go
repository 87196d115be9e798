package conduit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Configuration means the client was not set up to make the call
	// (missing namespace, token or host). No request was sent.
	Configuration
	// InvalidParams means the parameters cannot be encoded in the chosen mode.
	InvalidParams
	// Network represents connection-level failures (DNS, refused, reset, TLS).
	Network
	// Timeout represents timeouts and deadline expiry.
	Timeout
	// Cancelled represents context cancellation.
	Cancelled
	// HTTPStatus represents a non-2xx HTTP status from the server.
	HTTPStatus
	// Decode means the body was not a valid response envelope.
	Decode
	// API means the server answered with a non-null error_code.
	API
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Configuration:
		return "configuration"
	case InvalidParams:
		return "invalid_params"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	case HTTPStatus:
		return "http_status"
	case Decode:
		return "decode"
	case API:
		return "api"
	default:
		return "unknown"
	}
}

// IsTransport reports whether the type belongs to the transport family.
func (t ErrorType) IsTransport() bool {
	switch t {
	case Network, Timeout, Cancelled, HTTPStatus:
		return true
	default:
		return false
	}
}

// Error is a categorized Conduit error.
type Error struct {
	Type       ErrorType
	Method     string
	Message    string
	Code       string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString(" error")
	if e.Method != "" {
		b.WriteString(" calling ")
		b.WriteString(e.Method)
	}
	b.WriteString(": ")
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewError creates a new Error.
func NewError(errType ErrorType, method, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Method:  method,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(method, message string) *Error {
	return NewError(Configuration, method, message, nil)
}

// NewInvalidParamsError creates a parameter shape error.
func NewInvalidParamsError(message string) *Error {
	return NewError(InvalidParams, "", message, nil)
}

// NewAPIError creates an error for a non-null error_code envelope.
func NewAPIError(method, code, info string) *Error {
	err := NewError(API, method, info, nil)
	err.Code = code
	return err
}

// NewDecodeError creates a decode error.
func NewDecodeError(method, message string, cause error) *Error {
	return NewError(Decode, method, message, cause)
}

// NewHTTPStatusError creates an error for a non-2xx HTTP response.
func NewHTTPStatusError(method string, statusCode int, detail string) *Error {
	msg := fmt.Sprintf("server returned %d", statusCode)
	if detail != "" {
		msg += ": " + detail
	}
	err := NewError(HTTPStatus, method, msg, nil)
	err.StatusCode = statusCode
	return err
}

// Categorize wraps a raw transport error as Network, Timeout or Cancelled.
// Errors that are already categorized are returned with the method filled in.
func Categorize(err error, method string) *Error {
	if err == nil {
		return nil
	}

	var conduitErr *Error
	if errors.As(err, &conduitErr) {
		if conduitErr.Method == "" {
			conduitErr.Method = method
		}
		return conduitErr
	}

	if errors.Is(err, context.Canceled) {
		return NewError(Cancelled, method, "request cancelled", err)
	}

	if isTimeout(err) {
		return NewError(Timeout, method, "request timed out", err)
	}

	if isNetworkError(err) {
		return NewError(Network, method, "network failure", err)
	}

	return NewError(Network, method, "transport failure", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "tls:")
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var conduitErr *Error
	if errors.As(err, &conduitErr) {
		return conduitErr.Type
	}
	return Unknown
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == Configuration
}

// IsAPIError checks if the server reported the error.
func IsAPIError(err error) bool {
	return GetErrorType(err) == API
}

// IsTransportError checks if an error came from the transport layer.
func IsTransportError(err error) bool {
	return GetErrorType(err).IsTransport()
}

// IsDecodeError checks if the response could not be decoded.
func IsDecodeError(err error) bool {
	return GetErrorType(err) == Decode
}

// APIErrorCode returns the server error_code carried by an API error.
func APIErrorCode(err error) string {
	var conduitErr *Error
	if errors.As(err, &conduitErr) && conduitErr.Type == API {
		return conduitErr.Code
	}
	return ""
}

// GetStatusCode extracts the HTTP status code from an error.
func GetStatusCode(err error) int {
	var conduitErr *Error
	if errors.As(err, &conduitErr) {
		return conduitErr.StatusCode
	}
	return 0
}
