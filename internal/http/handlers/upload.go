package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type UploadHandler struct {
	log     *logger.Logger
	uploads services.UploadService
}

func NewUploadHandler(log *logger.Logger, uploads services.UploadService) *UploadHandler {
	return &UploadHandler{log: log.With("handler", "UploadHandler"), uploads: uploads}
}

// POST /upload/:studyId[?async=true]
func (h *UploadHandler) Upload(c *gin.Context) {
	async, err := queryBool(c, "async", false)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	h.upload(c, async)
}

// POST /upload/:studyId/async
func (h *UploadHandler) UploadAsync(c *gin.Context) {
	h.upload(c, true)
}

func (h *UploadHandler) upload(c *gin.Context, async bool) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	if len(raw) == 0 {
		response.RespondAPIError(c, h.log, apierr.E(apierr.PayloadParsing, "the upload body is empty"))
		return
	}
	status, err := h.uploads.Upload(requestDBC(c), c.Param("studyId"), raw, async)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, status)
}

// GET /upload/:studyId/status/:uploadId
func (h *UploadHandler) Status(c *gin.Context) {
	up, err := h.uploads.Status(requestDBC(c), c.Param("studyId"), c.Param("uploadId"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, up)
}

// POST /upload/:studyId/save/:uploadId
func (h *UploadHandler) Save(c *gin.Context) {
	ignore, err := queryBool(c, "ignoreAnalysisIdCollisions", false)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	status, err := h.uploads.Save(requestDBC(c), c.Param("studyId"), c.Param("uploadId"), ignore)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, status)
}
