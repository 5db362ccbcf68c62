package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

// EntityHandler serves study-scoped reads of the metadata graph and file
// updates.
type EntityHandler struct {
	log       *logger.Logger
	donors    services.DonorService
	specimens services.SpecimenService
	samples   services.SampleService
	files     services.FileService
}

type EntityHandlerDeps struct {
	Log       *logger.Logger
	Donors    services.DonorService
	Specimens services.SpecimenService
	Samples   services.SampleService
	Files     services.FileService
}

func NewEntityHandler(deps EntityHandlerDeps) *EntityHandler {
	return &EntityHandler{
		log:       deps.Log.With("handler", "EntityHandler"),
		donors:    deps.Donors,
		specimens: deps.Specimens,
		samples:   deps.Samples,
		files:     deps.Files,
	}
}

// GET /studies/:studyId/donors/:id
func (h *EntityHandler) Donor(c *gin.Context) {
	d, err := h.donors.Read(requestDBC(c), c.Param("studyId"), c.Param("id"))
	h.respond(c, d, err)
}

// GET /studies/:studyId/specimens/:id
func (h *EntityHandler) Specimen(c *gin.Context) {
	s, err := h.specimens.Read(requestDBC(c), c.Param("studyId"), c.Param("id"))
	h.respond(c, s, err)
}

// GET /studies/:studyId/samples/:id
func (h *EntityHandler) Sample(c *gin.Context) {
	s, err := h.samples.Read(requestDBC(c), c.Param("studyId"), c.Param("id"))
	h.respond(c, s, err)
}

// GET /studies/:studyId/files/:id
func (h *EntityHandler) File(c *gin.Context) {
	f, err := h.files.Read(requestDBC(c), c.Param("studyId"), c.Param("id"))
	h.respond(c, f, err)
}

// PUT /studies/:studyId/files/:id
func (h *EntityHandler) UpdateFile(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	var req services.FileUpdateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Wrap(apierr.PayloadParsing, err, "invalid file update request"))
		return
	}
	res, err := h.files.Update(requestDBC(c), c.Param("studyId"), c.Param("id"), req)
	h.respond(c, res, err)
}

func (h *EntityHandler) respond(c *gin.Context, payload any, err error) {
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, payload)
}
