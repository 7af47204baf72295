package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chatrecall/internal/pkg/response"
	"github.com/xxxsen/chatrecall/internal/service"
)

type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) List(c *gin.Context) {
	response.Success(c, gin.H{"conversations": h.conversations.List()})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	conversation, err := h.conversations.Get(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conversation)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}
