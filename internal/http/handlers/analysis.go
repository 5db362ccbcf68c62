package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type AnalysisHandler struct {
	log      *logger.Logger
	analyses services.AnalysisService
}

func NewAnalysisHandler(log *logger.Logger, analyses services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{log: log.With("handler", "AnalysisHandler"), analyses: analyses}
}

// GET /studies/:studyId/analysis?analysisStates=
func (h *AnalysisHandler) List(c *gin.Context) {
	states, err := services.ParseAnalysisStates(c.Query("analysisStates"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	views, err := h.analyses.ListByStudy(requestDBC(c), c.Param("studyId"), states)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, views)
}

// GET /studies/:studyId/analysis/paginated
func (h *AnalysisHandler) Page(c *gin.Context) {
	states, err := services.ParseAnalysisStates(c.Query("analysisStates"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	page, err := h.analyses.PageByStudy(requestDBC(c), c.Param("studyId"), states, limit, offset)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /studies/:studyId/analysis/search/id
func (h *AnalysisHandler) SearchByID(c *gin.Context) {
	var req services.IDSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Wrap(apierr.MalformedParameter, err, "invalid search parameters"))
		return
	}
	views, err := h.analyses.SearchByIDs(requestDBC(c), c.Param("studyId"), req)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, views)
}

// GET /studies/:studyId/analysis/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	view, err := h.analyses.SecuredDeepRead(requestDBC(c), c.Param("studyId"), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /studies/:studyId/analysis/:id/files
func (h *AnalysisHandler) Files(c *gin.Context) {
	files, err := h.analyses.SecuredReadFiles(requestDBC(c), c.Param("studyId"), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, files)
}

// PUT /studies/:studyId/analysis/:id
func (h *AnalysisHandler) Update(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	view, err := h.analyses.Update(requestDBC(c), c.Param("studyId"), c.Param("id"), raw)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}

// PATCH /studies/:studyId/analysis/:id
func (h *AnalysisHandler) Patch(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	view, err := h.analyses.Patch(requestDBC(c), c.Param("studyId"), c.Param("id"), raw)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /studies/:studyId/analysis/publish/:id
func (h *AnalysisHandler) Publish(c *gin.Context) {
	ignoreMd5, err := queryBool(c, "ignoreUndefinedMd5", false)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	token := ctxutil.AccessToken(c.Request.Context())
	msg, err := h.analyses.Publish(requestDBC(c), token, c.Param("studyId"), c.Param("id"), ignoreMd5)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondMessage(c, msg)
}

// PUT /studies/:studyId/analysis/unpublish/:id
func (h *AnalysisHandler) Unpublish(c *gin.Context) {
	if err := h.analyses.Unpublish(requestDBC(c), c.Param("studyId"), c.Param("id")); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondMessage(c, "AnalysisId "+c.Param("id")+" successfully unpublished.")
}

// PUT /studies/:studyId/analysis/suppress/:id
func (h *AnalysisHandler) Suppress(c *gin.Context) {
	if err := h.analyses.Suppress(requestDBC(c), c.Param("studyId"), c.Param("id")); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondMessage(c, "AnalysisId "+c.Param("id")+" was suppressed")
}
