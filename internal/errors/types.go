package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies errors by how the polling loop must react to them.
type Kind string

const (
	// KindContention means another holder owns the file. Drop it and retry next cycle.
	KindContention Kind = "contention"
	// KindIO means a listing, lock or store operation failed. Abort or skip, retry next cycle.
	KindIO Kind = "io"
	// KindConfig means the components were misconfigured. Fatal, never retried.
	KindConfig Kind = "config"
)

// Common error codes.
const (
	CodeListFailed    = "LIST_FAILED"
	CodeLockFailed    = "LOCK_FAILED"
	CodeUnlockFailed  = "UNLOCK_FAILED"
	CodeLockHeld      = "LOCK_HELD"
	CodeNotHeld       = "NOT_HELD"
	CodeClosed        = "CLOSED"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeStoreFailed   = "STORE_FAILED"
	CodeConsumeFailed = "CONSUME_FAILED"
)

// Error is a structured error carrying its Kind and the file it concerns.
type Error struct {
	Kind    Kind
	Code    string
	Op      string
	Path    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Kind)}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Op != "" {
		parts = append(parts, e.Op+":")
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports a match when both kind and code agree.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file the error concerns.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// WithOp records the operation that failed.
func (e *Error) WithOp(op string) *Error {
	e.Op = op

	return e
}

// NewContentionError reports a file held by another claimant.
func NewContentionError(path string) *Error {
	return &Error{
		Kind:    KindContention,
		Code:    CodeLockHeld,
		Path:    path,
		Message: "lock held by another claimant",
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Kind:    KindIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeInvalidConfig,
		Message: message,
	}
}

// KindOf returns the Kind of err, or the empty Kind when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsContention checks if an error reports lock contention.
func IsContention(err error) bool {
	return KindOf(err) == KindContention
}

// IsIO checks if an error is an I/O failure.
func IsIO(err error) bool {
	return KindOf(err) == KindIO
}

// IsConfig checks if an error is a configuration error.
func IsConfig(err error) bool {
	return KindOf(err) == KindConfig
}

// IsFatal reports whether err must halt the process. Only configuration errors do.
func IsFatal(err error) bool {
	return IsConfig(err)
}

// Logger is the subset of logging.Logger the Handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Debug(ctx context.Context, msg string, fields ...interface{})
}

// Handler logs errors at a level matching their Kind.
type Handler struct {
	logger Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err and reports whether it is fatal.
func (h *Handler) Handle(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		if h.logger != nil {
			h.logger.Error(ctx, err, "Unhandled error occurred")
		}
		return false
	}

	if h.logger == nil {
		return e.Kind == KindConfig
	}

	switch e.Kind {
	case KindContention:
		h.logger.Debug(ctx, "File claimed elsewhere", "path", e.Path)
	case KindIO:
		h.logger.Warn(ctx, err, "I/O failure, retrying next cycle",
			"code", e.Code,
			"path", e.Path)
	case KindConfig:
		h.logger.Error(ctx, err, "Configuration error",
			"code", e.Code)
	default:
		h.logger.Error(ctx, err, "Error occurred", "code", e.Code)
	}

	return e.Kind == KindConfig
}
