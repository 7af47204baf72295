package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/chatrecall/internal/pkg/errcode"
	pkgErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, pkgErr.ErrUnauthorized):
		response.Error(c, appErr.ErrUnauthorized, "unauthorized")
	case pkgErr.IsNotFound(err):
		response.Error(c, appErr.ErrNotFound, "not found")
	case errors.Is(err, pkgErr.ErrInvalid):
		response.Error(c, appErr.ErrInvalid, "invalid request")
	case errors.Is(err, pkgErr.ErrExportEmpty):
		response.Error(c, appErr.ErrInvalidFile, "export contains no messages")
	case errors.Is(err, pkgErr.ErrExportTooBig):
		response.Error(c, appErr.ErrInvalidFile, "export file too large")
	case errors.Is(err, pkgErr.ErrConflict):
		response.Error(c, appErr.ErrConflict, "conflict")
	case errors.Is(err, pkgErr.ErrAIUnavailable):
		response.Error(c, appErr.ErrAIUnavailable, "ai not configured")
	default:
		response.Error(c, appErr.ErrInternal, "internal error")
	}
}
