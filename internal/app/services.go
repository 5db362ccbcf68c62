package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/jobs/validation"
	"github.com/yungbote/songcatalog-backend/internal/platform/jsonschema"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
	"github.com/yungbote/songcatalog-backend/internal/temporalx/uploadvalidation"
)

type Services struct {
	IDs           services.IDResolver
	Info          services.InfoService
	Study         services.StudyService
	Donor         services.DonorService
	Specimen      services.SpecimenService
	Sample        services.SampleService
	Composite     services.CompositeEntityService
	AnalysisType  services.AnalysisTypeService
	Analysis      services.AnalysisService
	File          services.FileService
	Validation    services.ValidationService
	Upload        services.UploadService
	Lineage       *services.LineageProjector
	Events        services.EventPublisher
	EventsDriver  string
	Dispatcher    services.ValidationDispatcher
	ValidatorPool *validation.Pool
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	validator := jsonschema.NewValidator()
	s.IDs = services.NewIDResolver()
	s.Info = services.NewInfoService(log, r.Info)
	s.Study = services.NewStudyService(log, r.Study, r.Donor, r.Specimen, r.Sample, s.Info)
	s.Donor = services.NewDonorService(log, r.Donor, s.IDs, s.Info)
	s.Specimen = services.NewSpecimenService(log, r.Specimen, s.IDs, s.Info)
	s.Sample = services.NewSampleService(log, r.Sample, s.IDs, s.Info)
	s.Composite = services.NewCompositeEntityService(log, s.Donor, s.Specimen, s.Sample, r.Donor, r.Specimen, r.Sample, s.Info)
	s.AnalysisType = services.NewAnalysisTypeService(log, r.Schema, validator, cfg.EnforceLatest)

	// The lineage projector needs the analysis service to re-read views,
	// so the publisher is assembled in two steps.
	events, driver := eventPublisher(c)
	lateEvents := &deferredPublisher{}
	s.EventsDriver = driver

	experiments := services.DefaultExperimentRegistry()
	s.Analysis = services.NewAnalysisService(log, services.AnalysisServiceDeps{
		DB:                 db,
		Analyses:           r.Analysis,
		Schemas:            r.Schema,
		Data:               r.AnalysisData,
		SampleSets:         r.SampleSet,
		StateChanges:       r.StateChange,
		Files:              r.File,
		Uploads:            r.Upload,
		Donors:             r.Donor,
		Specimens:          r.Specimen,
		Samples:            r.Sample,
		Studies:            s.Study,
		Types:              s.AnalysisType,
		Composites:         s.Composite,
		Info:               s.Info,
		IDs:                s.IDs,
		Validator:          validator,
		Experiments:        experiments,
		Storage:            c.Storage,
		Events:             lateEvents,
		EventsDriver:       driver,
		StorageConcurrency: cfg.Storage.Concurrency,
	})

	if c.Neo4j != nil {
		s.Lineage = services.NewLineageProjector(log, s.Analysis, c.Neo4j)
		// With redis the projector follows the bus; otherwise it sees
		// events in-process.
		if c.EventBus == nil {
			events = services.NewMultiEventPublisher(events, s.Lineage)
		}
	}
	lateEvents.set(events)
	s.Events = events

	s.File = services.NewFileService(db, log, r.File, s.Study, s.Analysis, s.Info, events, driver)
	s.Validation = services.NewValidationService(log, r.Upload, s.AnalysisType, validator, experiments)

	switch cfg.Dispatch {
	case "", DispatchInline:
		if cfg.Pool.Workers > 0 {
			s.ValidatorPool = validation.NewPool(log, s.Validation, cfg.Pool)
			s.Dispatcher = s.ValidatorPool
		} else {
			s.Dispatcher = services.NewInlineDispatcher(log, s.Validation)
		}
	case DispatchTemporal:
		d, err := uploadvalidation.NewDispatcher(log, c.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, err
		}
		s.Dispatcher = d
	default:
		return Services{}, fmt.Errorf("unknown VALIDATION_DISPATCH %q", cfg.Dispatch)
	}

	s.Upload = services.NewUploadService(log, r.Upload, s.Study, s.Analysis, s.Validation, s.Dispatcher, s.IDs)
	return s, nil
}

func eventPublisher(c Clients) (services.EventPublisher, string) {
	switch {
	case c.EventBus != nil:
		return c.EventBus, EventsRedis
	case c.Kafka != nil:
		return c.Kafka, EventsKafka
	default:
		return services.NewNopEventPublisher(), EventsNone
	}
}
