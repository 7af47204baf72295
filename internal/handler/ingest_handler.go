package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chatrecall/internal/chunker"
	"github.com/xxxsen/chatrecall/internal/parser"
	"github.com/xxxsen/chatrecall/internal/pkg/errcode"
	pkgErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/pkg/response"
	"github.com/xxxsen/chatrecall/internal/service"
)

const maxExportBytes = 50 << 20

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type uploadRequest struct {
	ConversationName       string `form:"conversation_name"`
	IncludeSystemMessages  bool   `form:"include_system_messages"`
	IncludeDeletedMessages bool   `form:"include_deleted_messages"`
	Summarize              bool   `form:"summarize"`
	GapMinutes             int    `form:"gap_minutes"`
	MaxMessages            int    `form:"max_messages"`
	MinMessages            int    `form:"min_messages"`
}

// Upload accepts a chat export as multipart file and starts an ingestion
// job. The response carries the job id for progress polling.
func (h *IngestHandler) Upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "export file is required")
		return
	}
	if file.Size > maxExportBytes {
		handleError(c, pkgErr.ErrExportTooBig)
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "open upload failed")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxExportBytes+1))
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "read upload failed")
		return
	}
	if len(data) > maxExportBytes {
		handleError(c, pkgErr.ErrExportTooBig)
		return
	}
	name := req.ConversationName
	if name == "" {
		name = file.Filename
	}
	jobID := h.ingest.StartIngest(c.Request.Context(), string(data), service.IngestOptions{
		ConversationName: name,
		ParserOptions: parser.Options{
			IncludeSystemMessages:  req.IncludeSystemMessages,
			IncludeDeletedMessages: req.IncludeDeletedMessages,
		},
		ChunkerOptions: chunker.Options{
			GapMinutes:  req.GapMinutes,
			MaxMessages: req.MaxMessages,
			MinMessages: req.MinMessages,
		},
		Summarize: req.Summarize,
	})
	response.Success(c, gin.H{"job_id": jobID})
}

func (h *IngestHandler) Progress(c *gin.Context) {
	progress, err := h.ingest.Progress(c.Param("job_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, progress)
}

// Export streams back the archived raw export for a job.
func (h *IngestHandler) Export(c *gin.Context) {
	rc, err := h.ingest.OpenExport(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
