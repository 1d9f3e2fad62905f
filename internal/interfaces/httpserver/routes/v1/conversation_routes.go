package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidbridge/conversation-api/internal/interfaces/httpserver/handlers"
	conversationreq "vidbridge/conversation-api/internal/interfaces/httpserver/requests/conversation"
	"vidbridge/conversation-api/internal/interfaces/httpserver/responses"
	conversationres "vidbridge/conversation-api/internal/interfaces/httpserver/responses/conversation"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

// RegisterConversationRoutes registers the conversation routes.
func RegisterConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversations", createConversation(handler))
	router.POST("/conversations/attach", attachConversation(handler))
	router.GET("/conversations", listConversations(handler))
	router.GET("/conversations/:id", getConversation(handler))
	router.DELETE("/conversations/:id", deleteConversation(handler))
}

// createConversation godoc
// @Summary      Create a conversation
// @Description  Allocates a video room, creates a backing interaction and links the two.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        request body conversationreq.CreateConversationRequest true "Conversation parameters"
// @Success      201 {object} conversationres.ConversationResponse
// @Failure      400 {object} platformerrors.HTTPErrorResponse
// @Failure      502 {object} platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /conversations [post]
func createConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conversationreq.CreateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		params, err := req.ToParameters()
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		conv, err := handler.CreateConversation(c.Request.Context(), params)
		if err != nil {
			responses.HandleError(c, err, "failed to create conversation")
			return
		}

		c.JSON(http.StatusCreated, conversationres.NewConversationResponse(conv))
	}
}

// attachConversation godoc
// @Summary      Attach a conversation to an interaction
// @Description  Allocates a video room for an interaction that already exists on the platform.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        request body conversationreq.AttachConversationRequest true "Attach parameters"
// @Success      201 {object} conversationres.ConversationResponse
// @Failure      400 {object} platformerrors.HTTPErrorResponse
// @Failure      404 {object} platformerrors.HTTPErrorResponse
// @Failure      409 {object} platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /conversations/attach [post]
func attachConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conversationreq.AttachConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		conv, err := handler.AttachConversation(c.Request.Context(), req.InteractionID, req.GuestName, req.AdditionalAttributes)
		if err != nil {
			responses.HandleError(c, err, "failed to attach conversation")
			return
		}

		c.JSON(http.StatusCreated, conversationres.NewConversationResponse(conv))
	}
}

// listConversations godoc
// @Summary      List conversations
// @Description  Lists all tracked conversations.
// @Tags         Conversations
// @Produce      json
// @Success      200 {object} conversationres.ListConversationsResponse
// @Security     BearerAuth
// @Router       /conversations [get]
func listConversations(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		convs, err := handler.ListConversations(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to list conversations")
			return
		}

		c.JSON(http.StatusOK, conversationres.NewListConversationsResponse(convs))
	}
}

// getConversation godoc
// @Summary      Get a conversation
// @Description  Retrieves a conversation by ID.
// @Tags         Conversations
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Success      200 {object} conversationres.ConversationResponse
// @Failure      404 {object} platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id} [get]
func getConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := handler.GetConversation(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}

		c.JSON(http.StatusOK, conversationres.NewConversationResponseForGet(conv))
	}
}

// deleteConversation godoc
// @Summary      Delete a conversation
// @Description  Tears down the conversation's room and removes its record.
// @Tags         Conversations
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Success      200 {object} conversationres.DeleteConversationResponse
// @Failure      404 {object} platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id} [delete]
func deleteConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := handler.DeleteConversation(c.Request.Context(), id); err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}

		c.JSON(http.StatusOK, conversationres.NewDeleteConversationResponse(id))
	}
}
