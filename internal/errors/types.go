package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes failures raised while compiling rules or extracting text.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration covers missing or invalid configuration nodes. The rule
	// table degrades to empty or partial, indexing continues.
	KindConfiguration
	// KindAssetValidation covers assets missing a required field or stream.
	KindAssetValidation
	// KindExtraction covers failures raised by the OCR or PDF collaborators.
	KindExtraction
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "CONFIGURATION_ERROR"
	case KindAssetValidation:
		return "ASSET_VALIDATION_ERROR"
	case KindExtraction:
		return "EXTRACTION_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Error is a categorized failure. Op names the step that failed, Err is the
// underlying cause when there is one.
type Error struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"operation"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. A target with an
// empty Op matches any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Sentinels for errors.Is checks by kind.
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrAssetValidation = &Error{Kind: KindAssetValidation}
	ErrExtraction      = &Error{Kind: KindExtraction}
)

// Configuration creates a configuration error
func Configuration(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// AssetValidation creates an asset validation error
func AssetValidation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindAssetValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Extraction wraps a collaborator failure
func Extraction(op string, err error) *Error {
	return &Error{Kind: KindExtraction, Op: op, Message: "collaborator call failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Join combines configuration problems collected during a single compile pass.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
