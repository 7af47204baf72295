package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chatrecall/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Ingest        *IngestHandler
	Query         *QueryHandler
	Conversations *ConversationHandler
	JWTSecret     []byte
	UploadWindow  time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/exports/upload", middleware.RateLimit(deps.UploadWindow), deps.Ingest.Upload)
	authGroup.GET("/exports/jobs/:job_id", deps.Ingest.Progress)
	authGroup.GET("/exports/jobs/:job_id/raw", deps.Ingest.Export)

	authGroup.POST("/search", deps.Query.Search)
	authGroup.POST("/query", deps.Query.Query)
	authGroup.POST("/agent", deps.Query.Agent)

	authGroup.GET("/conversations", deps.Conversations.List)
	authGroup.GET("/conversations/:id", deps.Conversations.Get)
	authGroup.DELETE("/conversations/:id", deps.Conversations.Delete)
}
