package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/dto"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/responses"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// ConversationService is the part of conversation.Service the HTTP layer uses.
type ConversationService interface {
	Get(ctx context.Context, publicID, userID string) (*conversation.Conversation, error)
	List(ctx context.Context, userID string, pagination conversation.Pagination) ([]*conversation.Conversation, int64, error)
	Update(ctx context.Context, publicID, userID string, params conversation.UpdateParams) (*conversation.Conversation, error)
	Delete(ctx context.Context, publicID, userID string) error
	Messages(ctx context.Context, publicID, userID string, pagination conversation.Pagination) ([]*conversation.Message, error)
}

// ConversationHandler serves conversation history endpoints.
type ConversationHandler struct {
	conversations ConversationService
	log           zerolog.Logger
}

func NewConversationHandler(conversations ConversationService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		log:           log.With().Str("handler", "conversation").Logger(),
	}
}

// ListConversations
// @Summary List conversations
// @Description Lists the caller's conversations, most recently active first. Without a user id only anonymous conversations are listed.
// @Tags Conversations API
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Param user_id query string false "User id when authentication is disabled"
// @Success 200 {object} responses.ConversationListResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid query"
// @Router /v1/chat/conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	var q dto.ListQuery
	if !bindQuery(c, &q) {
		return
	}
	pagination := q.Pagination()
	convs, total, err := h.conversations.List(c.Request.Context(), callerID(c, q.UserID), pagination)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewConversationListResponse(convs, total, pagination))
}

// GetConversation
// @Summary Get a conversation
// @Tags Conversations API
// @Produce json
// @Param id path string true "Conversation id"
// @Param user_id query string false "User id when authentication is disabled"
// @Success 200 {object} responses.ConversationResponse
// @Failure 403 {object} responses.ErrorResponse "Conversation belongs to another user"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/conversations/{id} [get]
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), c.Param("id"), callerID(c, c.Query("user_id")))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// ListMessages
// @Summary List conversation messages
// @Description Returns a page of stored turns in replay order.
// @Tags Conversations API
// @Produce json
// @Param id path string true "Conversation id"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Param user_id query string false "User id when authentication is disabled"
// @Success 200 {object} responses.MessageListResponse
// @Failure 403 {object} responses.ErrorResponse "Conversation belongs to another user"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	var q dto.ListQuery
	if !bindQuery(c, &q) {
		return
	}
	pagination := q.Pagination()
	id := c.Param("id")
	msgs, err := h.conversations.Messages(c.Request.Context(), id, callerID(c, q.UserID), pagination)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewMessageListResponse(id, msgs, pagination))
}

// UpdateConversation
// @Summary Update a conversation
// @Description Changes the title, home, persona, scenario or active flag. Omitted fields are unchanged.
// @Tags Conversations API
// @Accept json
// @Produce json
// @Param id path string true "Conversation id"
// @Param request body dto.UpdateConversationRequest true "Fields to change"
// @Success 200 {object} responses.ConversationResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Conversation belongs to another user"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/conversations/{id} [put]
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	var body dto.UpdateConversationRequest
	if !bindJSON(c, &body) {
		return
	}
	conv, err := h.conversations.Update(c.Request.Context(), c.Param("id"), callerID(c, body.UserID), body.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// DeleteConversation
// @Summary Delete a conversation
// @Description Deletes the conversation with its messages, summaries and workflow state.
// @Tags Conversations API
// @Produce json
// @Param id path string true "Conversation id"
// @Param user_id query string false "User id when authentication is disabled"
// @Success 200 {object} responses.DeletedResponse
// @Failure 403 {object} responses.ErrorResponse "Conversation belongs to another user"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/conversations/{id} [delete]
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.conversations.Delete(c.Request.Context(), id, callerID(c, c.Query("user_id"))); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.DeletedResponse{ID: id, Deleted: true})
}

func bindQuery(c *gin.Context, q *dto.ListQuery) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		platformerrors.WriteValidationError(c, "invalid query parameters")
		return false
	}
	if err := dto.Validate(q); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return false
	}
	return true
}
