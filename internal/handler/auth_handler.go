package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chatrecall/internal/pkg/response"
	"github.com/xxxsen/chatrecall/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Secret string `json:"secret"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Secret)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}
