package platformerrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse is the standard error response envelope.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response, mapping the
// error type to a status code.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	LogError(log, err)

	status := ErrorTypeToHTTPStatus(err.Type)
	c.JSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: err.Message,
			Type:    errorTypeToString(err.Type),
			Code:    err.UUID,
		},
	})
}

// WriteError writes a generic error as an HTTP response. PlatformErrors are
// mapped by type; anything else is treated as internal.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		WriteHTTPError(c, platformErr, log)
		return
	}

	c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: err.Error(),
			Type:    "internal_error",
		},
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	WriteTyped(c, ErrorTypeNotFound, message)
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	WriteTyped(c, ErrorTypeValidation, message)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(c *gin.Context, message string) {
	WriteTyped(c, ErrorTypeInvalidState, message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	WriteTyped(c, ErrorTypeUnauthorized, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	WriteTyped(c, ErrorTypeInternal, message)
}

// WriteTyped writes a typed error response with the mapped status code.
func WriteTyped(c *gin.Context, errorType ErrorType, message string) {
	c.JSON(ErrorTypeToHTTPStatus(errorType), HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: message,
			Type:    errorTypeToString(errorType),
		},
	})
}

// errorTypeToString converts an ErrorType to a snake_case string for API
// responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeInvalidState:
		return "invalid_state_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeRemoteFailure:
		return "remote_failure_error"
	case ErrorTypePersistence:
		return "persistence_error"
	case ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
