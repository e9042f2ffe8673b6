package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/reno-server/internal/interfaces/httpserver/handlers"
)

// V1Route registers the /v1 API.
type V1Route struct {
	chat          *handlers.ChatHandler
	conversations *handlers.ConversationHandler
	chatLimit     gin.HandlerFunc
}

// NewV1Route builds the route table. chatLimit guards the turn endpoints and
// may be nil.
func NewV1Route(chat *handlers.ChatHandler, conversations *handlers.ConversationHandler, chatLimit gin.HandlerFunc) *V1Route {
	return &V1Route{
		chat:          chat,
		conversations: conversations,
		chatLimit:     chatLimit,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/healthz", GetHealthz)

	chatRouter := v1Router.Group("/chat")
	turns := chatRouter.Group("")
	if v1Route.chatLimit != nil {
		turns.Use(v1Route.chatLimit)
	}
	turns.POST("/message", v1Route.chat.PostMessage)
	turns.POST("/stream", v1Route.chat.PostStream)
	turns.POST("/stream-multipart", v1Route.chat.PostStreamMultipart)
	turns.POST("/execute-action", v1Route.chat.PostExecuteAction)

	conversations := chatRouter.Group("/conversations")
	conversations.GET("", v1Route.conversations.ListConversations)
	conversations.GET("/:id", v1Route.conversations.GetConversation)
	conversations.PUT("/:id", v1Route.conversations.UpdateConversation)
	conversations.DELETE("/:id", v1Route.conversations.DeleteConversation)
	conversations.GET("/:id/messages", v1Route.conversations.ListMessages)
}

// GetHealthz godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API server.
// @Tags Server API
// @Produce json
// @Success 200 {object} map[string]string "Health status OK"
// @Router /v1/healthz [get]
func GetHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
