// Package responses contains shared HTTP response helpers.
package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

// HandleError maps domain and platform errors to HTTP responses.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()

	if errors.Is(err, conversation.ErrConversationNotFound) {
		platformerrors.WriteNotFound(c, message)
		return
	}

	platformerrors.WriteError(c, err, logger)
}

// HandleNewError creates and writes a new typed error response. Use this for
// route-level errors like validation failures.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	platformerrors.WriteTyped(c, errorType, message)
}
