package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type AnalysisTypeHandler struct {
	log   *logger.Logger
	types services.AnalysisTypeService
}

func NewAnalysisTypeHandler(log *logger.Logger, types services.AnalysisTypeService) *AnalysisTypeHandler {
	return &AnalysisTypeHandler{log: log.With("handler", "AnalysisTypeHandler"), types: types}
}

type registerRequest struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

// GET /schemas
func (h *AnalysisTypeHandler) List(c *gin.Context) {
	q := services.AnalysisTypeQuery{
		Names:     queryList(c, "name"),
		Sort:      c.Query("sort"),
		SortOrder: c.Query("sortOrder"),
	}
	for _, raw := range queryList(c, "version") {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondAPIError(c, h.log, apierr.E(apierr.MalformedParameter, "version must be an integer, got %q", raw))
			return
		}
		q.Versions = append(q.Versions, v)
	}
	var err error
	if q.Offset, err = queryInt(c, "offset", 0); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	if q.Limit, err = queryInt(c, "limit", services.DefaultTypeListLimit); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	if q.HideSchema, err = queryBool(c, "hideSchema", false); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	if q.UnrenderedOnly, err = queryBool(c, "unrenderedOnly", false); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	page, err := h.types.List(requestDBC(c), q)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /schemas/analysis
func (h *AnalysisTypeHandler) ListNames(c *gin.Context) {
	names, err := h.types.ListNames(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, names)
}

// GET /schemas/registration
func (h *AnalysisTypeHandler) RegistrationSchema(c *gin.Context) {
	c.Data(200, "application/json", h.types.RegistrationSchema())
}

// GET /schemas/:name
func (h *AnalysisTypeHandler) GetLatest(c *gin.Context) {
	h.get(c, nil)
}

// GET /schemas/:name/:version
func (h *AnalysisTypeHandler) GetVersion(c *gin.Context) {
	v, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		response.RespondAPIError(c, h.log, apierr.E(apierr.MalformedParameter, "version must be an integer, got %q", c.Param("version")))
		return
	}
	h.get(c, &v)
}

func (h *AnalysisTypeHandler) get(c *gin.Context, version *int) {
	unrendered, err := queryBool(c, "unrenderedOnly", false)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	at, err := h.types.Get(requestDBC(c), c.Param("name"), version, unrendered)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, at)
}

// GET /schemas/id/:analysisTypeId
func (h *AnalysisTypeHandler) GetByTypeID(c *gin.Context) {
	unrendered, err := queryBool(c, "unrenderedOnly", false)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	at, err := h.types.GetByTypeID(requestDBC(c), c.Param("analysisTypeId"), unrendered)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, at)
}

// POST /schemas
func (h *AnalysisTypeHandler) Register(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	var req registerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Wrap(apierr.PayloadParsing, err, "invalid registration request"))
		return
	}
	at, err := h.types.Register(requestDBC(c), req.Name, req.Schema)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, at)
}
