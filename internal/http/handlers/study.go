package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type StudyHandler struct {
	log     *logger.Logger
	studies services.StudyService
}

func NewStudyHandler(log *logger.Logger, studies services.StudyService) *StudyHandler {
	return &StudyHandler{log: log.With("handler", "StudyHandler"), studies: studies}
}

// POST /studies/:studyId
func (h *StudyHandler) Create(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	var study types.Study
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &study); err != nil {
			response.RespondAPIError(c, h.log, apierr.Wrap(apierr.PayloadParsing, err, "invalid study"))
			return
		}
	}
	pathID := strings.TrimSpace(c.Param("studyId"))
	if study.ID == "" {
		study.ID = pathID
	}
	if study.ID != pathID {
		response.RespondAPIError(c, h.log, apierr.E(apierr.StudyIDMismatch, "the studyId '%s' in the body does not match the path studyId '%s'", study.ID, pathID))
		return
	}
	if err := h.studies.Create(requestDBC(c), &study); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, &study)
}

// GET /studies
func (h *StudyHandler) ListIDs(c *gin.Context) {
	ids, err := h.studies.ListIDs(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, ids)
}

// GET /studies/:studyId
func (h *StudyHandler) Get(c *gin.Context) {
	study, err := h.studies.Read(requestDBC(c), c.Param("studyId"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, study)
}

// GET /studies/:studyId/all
func (h *StudyHandler) GetAll(c *gin.Context) {
	tree, err := h.studies.ReadWithChildren(requestDBC(c), c.Param("studyId"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, tree)
}
