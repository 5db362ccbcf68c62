package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/songcatalog-backend/internal/http/handlers"
	httpMW "github.com/yungbote/songcatalog-backend/internal/http/middleware"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	AnalysisTypeHandler *httpH.AnalysisTypeHandler
	StudyHandler        *httpH.StudyHandler
	UploadHandler       *httpH.UploadHandler
	AnalysisHandler     *httpH.AnalysisHandler
	EntityHandler       *httpH.EntityHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	system := noAuth
	study := noAuth
	if cfg.AuthMiddleware != nil {
		system = cfg.AuthMiddleware.RequireSystem()
		study = cfg.AuthMiddleware.RequireStudy()
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/isAlive", cfg.HealthHandler.IsAlive)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Analysis types
	if h := cfg.AnalysisTypeHandler; h != nil {
		r.GET("/schemas", h.List)
		r.GET("/schemas/analysis", h.ListNames)
		r.GET("/schemas/registration", h.RegistrationSchema)
		r.GET("/schemas/id/:analysisTypeId", h.GetByTypeID)
		r.GET("/schemas/:name", h.GetLatest)
		r.GET("/schemas/:name/:version", h.GetVersion)
		r.POST("/schemas", system, h.Register)
	}

	// Studies
	if h := cfg.StudyHandler; h != nil {
		r.GET("/studies", h.ListIDs)
		r.GET("/studies/:studyId", h.Get)
		r.GET("/studies/:studyId/all", h.GetAll)
		r.POST("/studies/:studyId", system, h.Create)
	}

	// Uploads
	if h := cfg.UploadHandler; h != nil {
		r.POST("/upload/:studyId", study, h.Upload)
		r.POST("/upload/:studyId/async", study, h.UploadAsync)
		r.GET("/upload/:studyId/status/:uploadId", h.Status)
		r.POST("/upload/:studyId/save/:uploadId", study, h.Save)
	}

	// Analyses
	if h := cfg.AnalysisHandler; h != nil {
		r.GET("/studies/:studyId/analysis", h.List)
		r.GET("/studies/:studyId/analysis/paginated", h.Page)
		r.GET("/studies/:studyId/analysis/search/id", h.SearchByID)
		r.GET("/studies/:studyId/analysis/:id", h.Get)
		r.GET("/studies/:studyId/analysis/:id/files", h.Files)
		r.PUT("/studies/:studyId/analysis/:id", study, h.Update)
		r.PATCH("/studies/:studyId/analysis/:id", study, h.Patch)
		r.PUT("/studies/:studyId/analysis/publish/:id", study, h.Publish)
		r.PUT("/studies/:studyId/analysis/unpublish/:id", study, h.Unpublish)
		r.PUT("/studies/:studyId/analysis/suppress/:id", study, h.Suppress)
	}

	// Entities
	if h := cfg.EntityHandler; h != nil {
		r.GET("/studies/:studyId/donors/:id", h.Donor)
		r.GET("/studies/:studyId/specimens/:id", h.Specimen)
		r.GET("/studies/:studyId/samples/:id", h.Sample)
		r.GET("/studies/:studyId/files/:id", h.File)
		r.PUT("/studies/:studyId/files/:id", study, h.UpdateFile)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not.found"}})
	})
	return r
}

func noAuth(c *gin.Context) { c.Next() }
