package errors

import (
	"errors"
)

// Wrap wraps an error with a kind and code. Path and op of an inner *Error are preserved.
func Wrap(err error, kind Kind, code, message string) *Error {
	if err == nil {
		return nil
	}

	var inner *Error
	if errors.As(err, &inner) {
		return &Error{
			Kind:    kind,
			Code:    code,
			Op:      inner.Op,
			Path:    inner.Path,
			Message: message,
			Cause:   inner,
			Context: inner.Context,
		}
	}

	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O failure
func WrapIO(err error, code, message string) *Error {
	return Wrap(err, KindIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, message string) *Error {
	return Wrap(err, KindConfig, CodeInvalidConfig, message)
}

// CombineErrors joins the non-nil errors. It returns nil when there are none.
func CombineErrors(errs ...error) error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}

	switch len(collected) {
	case 0:
		return nil
	case 1:
		return collected[0]
	default:
		return errors.Join(collected...)
	}
}
