package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrConfigParse ErrorType = iota
	ErrRegexCompile
	ErrMissingField
	ErrMetadataExtraction
	ErrConflict
	ErrIO
	ErrInvalidPackage
	ErrSigning
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrConfigParse:
		return "ConfigParse"
	case ErrRegexCompile:
		return "RegexCompile"
	case ErrMissingField:
		return "MissingField"
	case ErrMetadataExtraction:
		return "MetadataExtraction"
	case ErrConflict:
		return "Conflict"
	case ErrIO:
		return "IO"
	case ErrInvalidPackage:
		return "InvalidPackage"
	case ErrSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// Error is the error returned by every operation that aborts a run.
// Package names the offending path, pattern or package when known.
type Error struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given type and subject.
func NewError(t ErrorType, subject string, err error) *Error {
	return &Error{Type: t, Package: subject, Err: err}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
