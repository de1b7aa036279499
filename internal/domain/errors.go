package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies failures so transport layers can map them without string matching.
type ErrorCode string

const (
	CodeIsolationViolation  ErrorCode = "isolation_violation"
	CodeDimensionMismatch   ErrorCode = "dimension_mismatch"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeRebuildInProgress   ErrorCode = "rebuild_in_progress"
	CodeStorage             ErrorCode = "storage"

	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a domain error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code. Already-coded errors keep their code.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the outermost domain error code when available.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if !errors.As(err, &dErr) {
		return ""
	}
	return dErr.Code
}

// IsRetryable reports whether the caller may retry the same request later.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeRebuildInProgress, CodeRetryable:
		return true
	default:
		return false
	}
}

func IsolationViolation(op, message string) error {
	return NewError(CodeIsolationViolation, op, message, nil)
}

func DimensionMismatch(op string, want, got int) error {
	return NewError(CodeDimensionMismatch, op, fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", want, got), nil)
}

func RebuildInProgress(op, scopeKey string) error {
	return NewError(CodeRebuildInProgress, op, fmt.Sprintf("rebuild already running for scope %s", scopeKey), nil)
}

func Validation(op, message string) error {
	return NewError(CodeValidation, op, message, nil)
}
