package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the machine-readable classification returned to callers.
type ErrorCode string

const (
	CodeNotFound            ErrorCode = "NotFound"
	CodeNoEligibleProposals ErrorCode = "NoEligibleProposals"
	CodeIncomparableSet     ErrorCode = "IncomparableSet"
	CodeTimeout             ErrorCode = "Timeout"
	CodeInvalidJson         ErrorCode = "InvalidJson"
	CodeValidationError     ErrorCode = "ValidationError"
	CodeConfigurationError  ErrorCode = "ConfigurationError"
	CodeProviderApiError    ErrorCode = "ProviderApiError"
	CodeEvaluationFailed    ErrorCode = "EvaluationFailed"
)

// EngineError carries a classified failure across the pipeline boundary.
// RetryAfter is set only for Timeout.
type EngineError struct {
	Code       ErrorCode
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Errf builds an EngineError with a formatted message.
func Errf(code ErrorCode, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a code to an underlying error.
func WrapErr(code ErrorCode, err error, message string) *EngineError {
	return &EngineError{Code: code, Message: message, Err: err}
}

// Classify returns err as an EngineError, wrapping unclassified failures as
// EvaluationFailed.
func Classify(err error) *EngineError {
	if err == nil {
		return nil
	}
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr
	}
	return &EngineError{Code: CodeEvaluationFailed, Message: "evaluation failed", Err: err}
}

// CodeOf extracts the classification of err. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Classify(err).Code
}

// truncateDetail caps upstream provider detail carried in error messages.
func truncateDetail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
