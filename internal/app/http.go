package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/songcatalog-backend/internal/http"
	httpH "github.com/yungbote/songcatalog-backend/internal/http/handlers"
	httpMW "github.com/yungbote/songcatalog-backend/internal/http/middleware"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	AnalysisType *httpH.AnalysisTypeHandler
	Study        *httpH.StudyHandler
	Upload       *httpH.UploadHandler
	Analysis     *httpH.AnalysisHandler
	Entity       *httpH.EntityHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(db),
		AnalysisType: httpH.NewAnalysisTypeHandler(log, s.AnalysisType),
		Study:        httpH.NewStudyHandler(log, s.Study),
		Upload:       httpH.NewUploadHandler(log, s.Upload),
		Analysis:     httpH.NewAnalysisHandler(log, s.Analysis),
		Entity: httpH.NewEntityHandler(httpH.EntityHandlerDeps{
			Log:       log,
			Donors:    s.Donor,
			Specimens: s.Specimen,
			Samples:   s.Sample,
			Files:     s.File,
		}),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		ServiceName:         cfg.ServiceName,
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, cfg.Auth),
		HealthHandler:       handlers.Health,
		AnalysisTypeHandler: handlers.AnalysisType,
		StudyHandler:        handlers.Study,
		UploadHandler:       handlers.Upload,
		AnalysisHandler:     handlers.Analysis,
		EntityHandler:       handlers.Entity,
	}, cfg.HTTP)
}
