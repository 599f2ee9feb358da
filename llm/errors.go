package llm

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across packages.
var (
	ErrValidation      = errors.New("validation failed")
	ErrEncoding        = errors.New("encoding failed")
	ErrPublish         = errors.New("publish failed")
	ErrConversion      = errors.New("markdown conversion failed")
	ErrExternalCall    = errors.New("external call failed")
	ErrRecursionLimit  = errors.New("recursion limit reached")
	ErrQuizUnavailable = errors.New("quiz tools unavailable")
)

// ValidationError names the first missing or invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("validation failed: %s is required", e.Field)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Missing is shorthand for a required-field ValidationError.
func Missing(field string) error {
	return &ValidationError{Field: field}
}

// EncodingError reports a file that could not be read or encoded.
type EncodingError struct {
	File string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %q: %v", e.File, e.Err)
}

func (e *EncodingError) Unwrap() []error { return []error{ErrEncoding, e.Err} }

// PublishError reports a page the document store did not accept.
type PublishError struct {
	Reason string
	Err    error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish failed: %s: %v", e.Reason, e.Err)
	}
	return "publish failed: " + e.Reason
}

func (e *PublishError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPublish}
	}
	return []error{ErrPublish, e.Err}
}

// ConversionError carries the converter's diagnostics.
type ConversionError struct {
	Stderr string
	Stdout string
	Err    error
}

// maxStdoutDiagnostic bounds the stdout excerpt kept on a conversion failure.
const maxStdoutDiagnostic = 5000

// NewConversionError truncates stdout for diagnostics.
func NewConversionError(err error, stderr, stdout string) *ConversionError {
	if len(stdout) > maxStdoutDiagnostic {
		stdout = stdout[:maxStdoutDiagnostic]
	}
	return &ConversionError{Stderr: stderr, Stdout: stdout, Err: err}
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("markdown conversion failed: %v", e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	if e.Stdout != "" {
		msg += "\nstdout: " + e.Stdout
	}
	return msg
}

func (e *ConversionError) Unwrap() []error { return []error{ErrConversion, e.Err} }

// ExternalCallFailure wraps a failed call to the LLM, document store, object
// store or vector index after any transport-level retries.
type ExternalCallFailure struct {
	Service string
	Err     error
}

func (e *ExternalCallFailure) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *ExternalCallFailure) Unwrap() []error { return []error{ErrExternalCall, e.Err} }

// External wraps err as an ExternalCallFailure for service. nil stays nil.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalCallFailure
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalCallFailure{Service: service, Err: err}
}
