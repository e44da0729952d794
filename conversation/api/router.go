package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes mounts the webhook and conversation detail
// endpoints, both with and without a trailing slash
func RegisterConversationRoutes(r gin.IRouter, handler *ConversationHandler, webhookMiddleware ...gin.HandlerFunc) {
	webhook := append(append([]gin.HandlerFunc{}, webhookMiddleware...), handler.Webhook)
	r.POST("/webhook", webhook...)
	r.POST("/webhook/", webhook...)

	r.GET("/conversations/:id", handler.GetConversation)
	r.GET("/conversations/:id/", handler.GetConversation)
}
