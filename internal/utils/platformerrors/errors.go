// Package platformerrors defines the typed error model shared across layers.
package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeNotFound indicates a conversation, interaction, or room is absent.
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeInvalidState indicates an operation was attempted against a
	// resource whose current state forbids it (e.g. attaching to a
	// disconnected interaction).
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
	// ErrorTypeRemoteFailure indicates a gateway call failed or timed out.
	ErrorTypeRemoteFailure ErrorType = "REMOTE_FAILURE"
	// ErrorTypePersistence indicates local record I/O failed.
	ErrorTypePersistence ErrorType = "PERSISTENCE_FAILURE"
	// ErrorTypeValidation indicates malformed or missing request input.
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeUnauthorized indicates missing or invalid credentials.
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	// ErrorTypeInternal is the fallback for unclassified failures.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Layer represents the application layer where the error occurred.
type Layer string

const (
	LayerStore          Layer = "store"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerRoute          Layer = "route"
	LayerInfrastructure Layer = "infrastructure"
)

// PlatformError carries an error with its classification and context.
type PlatformError struct {
	UUID      string
	Type      ErrorType
	Message   string
	Err       error
	Context   map[string]any
	Layer     Layer
	Timestamp time.Time
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s][%s] %s: %v", e.Layer, e.Type, e.UUID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s][%s] %s", e.Layer, e.Type, e.UUID, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// New creates a PlatformError with the given classification.
func New(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *PlatformError {
	return NewWithContext(ctx, layer, errorType, message, err, nil)
}

// NewWithContext creates a PlatformError carrying extra context fields.
func NewWithContext(ctx context.Context, layer Layer, errorType ErrorType, message string, err error, contextFields map[string]any) *PlatformError {
	errorContext := make(map[string]any, len(contextFields))
	for k, v := range contextFields {
		errorContext[k] = v
	}

	return &PlatformError{
		UUID:      uuid.New().String(),
		Type:      errorType,
		Message:   message,
		Err:       err,
		Layer:     layer,
		Timestamp: time.Now().UTC(),
		Context:   errorContext,
	}
}

// AsError wraps err with layer context, preserving the classification of an
// existing PlatformError in the chain.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return New(ctx, layer, platformErr.Type, fmt.Sprintf("%s: %s", message, platformErr.Message), platformErr)
	}

	return New(ctx, layer, ErrorTypeInternal, message, err)
}

// IsErrorType reports whether err is a PlatformError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type == errorType
	}

	return false
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes.
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeInvalidState:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeRemoteFailure:
		return http.StatusBadGateway
	case ErrorTypePersistence:
		return http.StatusInternalServerError
	case ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// LogError logs a platform error with structured fields.
func LogError(logger zerolog.Logger, err *PlatformError) {
	if err == nil {
		return
	}

	event := logger.Error().
		Str("error_uuid", err.UUID).
		Str("error_type", string(err.Type)).
		Str("layer", string(err.Layer)).
		Time("timestamp_utc", err.Timestamp)

	for k, v := range err.Context {
		event = event.Interface(k, v)
	}

	if err.Err != nil {
		event = event.Err(err.Err)
	}

	event.Msg(err.Message)
}
