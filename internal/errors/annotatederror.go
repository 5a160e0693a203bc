package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
	// cause is the wrapped error, nil for errors created with New.
	cause error
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return newAnnotated(msg, nil, attrs)
}

// Wrap annotates err with a message describing what was attempted and optional attributes.
//
// The returned error matches err with [Is] and [As]. Wrapping a nil error returns nil so that the call site
// can stay on one line.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return newAnnotated(msg, err, attrs)
}

func newAnnotated(msg string, cause error, attrs []slog.Attr) *AnnotatedError {
	var pcs [1]uintptr
	// Skip runtime.Callers, this function and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return &AnnotatedError{
		msg:   msg,
		pc:    pcs[0],
		attrs: attrs,
		cause: cause,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Error implements error interface.
func (err *AnnotatedError) Error() string {
	if err.cause == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.cause.Error())
}

// Unwrap returns the wrapped error.
func (err *AnnotatedError) Unwrap() error {
	return err.cause
}

// LogValue formats the error for useful logging.
func (err *AnnotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	sourceAttr := slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line))

	attrs := append(
		[]slog.Attr{slog.String("msg", err.Error()), sourceAttr},
		err.attrs...,
	)

	// Attributes from the wrapped annotated errors are hoisted so that the whole chain ends up in one log line.
	var inner *AnnotatedError
	if errors.As(err.cause, &inner) {
		attrs = append(attrs, inner.attrs...)
	}

	return slog.GroupValue(attrs...)
}

// SlogError returns a log attribute for err under the "error" key.
func SlogError(err error) slog.Attr {
	var annotated *AnnotatedError
	if errors.As(err, &annotated) && annotated == err {
		return slog.Any("error", annotated)
	}
	if errors.As(err, &annotated) {
		return slog.Group("error",
			slog.String("msg", err.Error()),
			slog.Any("cause", annotated),
		)
	}
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
