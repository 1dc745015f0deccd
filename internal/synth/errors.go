package synth

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEmptyText is returned for blank synthesis requests.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrUnknownVoice is returned when a voice name is not in the catalog.
	ErrUnknownVoice = errors.New("unknown voice")

	// ErrAllChunksFailed is returned when a batch produced no audio at all.
	ErrAllChunksFailed = errors.New("every chunk failed to synthesize")
)

// ErrorCode identifies the class of a synthesis failure.
type ErrorCode string

const (
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeAudioFormat       ErrorCode = "AUDIO_FORMAT"
	ErrorCodeCanceled          ErrorCode = "CANCELED"
)

// Error is a synthesis failure with a code and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a synthesis error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithContext attaches a key/value pair for logging.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRetryable reports whether the same request may succeed if sent again.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineFailure, ErrorCodeEngineTimeout, ErrorCodeEngineUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable synthesis error.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.IsRetryable()
}

// classifyTransportError maps an HTTP client error to a synthesis error.
func classifyTransportError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return NewError(ErrorCodeCanceled, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorCodeEngineTimeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorCodeEngineTimeout, "request timed out", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewError(ErrorCodeEngineUnavailable, "speech server unreachable", err)
	}
	return NewError(ErrorCodeEngineFailure, "request failed", err)
}
