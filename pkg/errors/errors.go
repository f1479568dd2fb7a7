package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of a core failure
type Kind string

const (
	// KindGraphUnavailable means no focused graph view exists. Not
	// retryable: the user has to change focus first.
	KindGraphUnavailable Kind = "GRAPH_UNAVAILABLE"

	// KindNodeOperation means a host mutation primitive and its fallback
	// both failed. Retryable: usually transient host state.
	KindNodeOperation Kind = "NODE_OPERATION_FAILED"

	// KindContextExtraction means node or edge data was malformed during
	// context assembly. Not retryable.
	KindContextExtraction Kind = "CONTEXT_EXTRACTION_FAILED"

	// KindTransport wraps a completion-transport failure. The classified
	// message is advisory text only; retry policy stays with the transport.
	KindTransport Kind = "TRANSPORT_FAILED"

	// KindValidation marks pre-flight input validation failures
	KindValidation Kind = "VALIDATION"
)

// Node operation sub-variants
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpConnect = "connect"
)

// Context extraction sub-variants
const (
	OpNodeContent    = "node-content"
	OpConnectedNodes = "connected-nodes"
	OpContextBuild   = "context-build"
)

// AppError is the typed failure shared by the extractor, the mutator and
// the orchestrator
type AppError struct {
	Kind      Kind
	Op        string // sub-variant within the kind, may be empty
	Message   string
	Cause     error
	Retryable bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += "/" + e.Op
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// StatusCode maps the error kind onto an HTTP status for the REST surface
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindGraphUnavailable:
		return http.StatusConflict
	case KindContextExtraction:
		return http.StatusUnprocessableEntity
	case KindNodeOperation:
		return http.StatusBadGateway
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewGraphUnavailableError signals that no graph view is focused
func NewGraphUnavailableError() *AppError {
	return &AppError{
		Kind:    KindGraphUnavailable,
		Message: "no active canvas graph view",
	}
}

// NewNodeOperationError signals that a host mutation and its fallback failed
func NewNodeOperationError(op, message string, cause error) *AppError {
	return &AppError{
		Kind:      KindNodeOperation,
		Op:        op,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewContextExtractionError signals malformed node or edge data
func NewContextExtractionError(op, message string) *AppError {
	return &AppError{
		Kind:    KindContextExtraction,
		Op:      op,
		Message: message,
	}
}

// NewTransportError wraps a completion-transport failure
func NewTransportError(cause error) *AppError {
	return &AppError{
		Kind:    KindTransport,
		Message: "completion transport failed",
		Cause:   cause,
	}
}

// NewValidationError signals invalid input
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
	}
}

// KindOf extracts the Kind from any error, or empty when it is not an AppError
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsRetryable reports whether the failure is worth re-submitting as-is
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
