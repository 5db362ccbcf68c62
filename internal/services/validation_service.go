package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/domain/analysis"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/jsonschema"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

const unknownProcessingProblem = "Unknown processing problem: "

type ValidationService interface {
	// ValidatePayload returns the problems found in a submission. Business
	// failures such as an unknown analysis type are reported as problems;
	// the error is reserved for failures unrelated to the payload.
	ValidatePayload(dbc dbctx.Context, payload []byte) ([]string, error)
	// ValidateUpload validates a staged upload and records the outcome. It
	// is safe to run more than once: only CREATED uploads are moved.
	ValidateUpload(dbc dbctx.Context, uploadID string) (types.UploadState, error)
}

// ValidationDispatcher hands an upload to whatever runs deferred validation.
type ValidationDispatcher interface {
	Dispatch(ctx context.Context, uploadID string) error
}

type validationService struct {
	log         *logger.Logger
	uploads     repos.UploadRepo
	types       AnalysisTypeService
	validator   jsonschema.Validator
	experiments ExperimentRegistry
}

func NewValidationService(
	baseLog *logger.Logger,
	uploads repos.UploadRepo,
	analysisTypes AnalysisTypeService,
	validator jsonschema.Validator,
	experiments ExperimentRegistry,
) ValidationService {
	if experiments == nil {
		experiments = DefaultExperimentRegistry()
	}
	return &validationService{
		log:         baseLog.With("service", "ValidationService"),
		uploads:     uploads,
		types:       analysisTypes,
		validator:   validator,
		experiments: experiments,
	}
}

func (s *validationService) ValidatePayload(dbc dbctx.Context, payload []byte) ([]string, error) {
	p, err := DecodePayload(payload)
	if err != nil {
		return []string{fmt.Sprintf("Invalid JSON document submitted: %s", errMessage(err))}, nil
	}
	if p.AnalysisType.Name == "" {
		return []string{"Missing the 'analysisType' field"}, nil
	}
	schema, err := s.types.ResolveForSubmission(dbc, p.AnalysisType)
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return []string{errMessage(err)}, nil
		}
		return nil, err
	}
	rendered, err := s.types.PayloadSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("render payload schema %s: %w", analysis.TypeID(schema.Name, schema.Version), err)
	}
	violations, err := s.validator.Validate(rendered, payload)
	if err != nil {
		return nil, fmt.Errorf("validate against %s: %w", analysis.TypeID(schema.Name, schema.Version), err)
	}
	if len(violations) > 0 {
		return violations, nil
	}
	if _, _, err := s.experiments.Decode(schema.Name, p.Data); err != nil {
		return []string{err.Error()}, nil
	}
	return nil, nil
}

func (s *validationService) ValidateUpload(dbc dbctx.Context, uploadID string) (types.UploadState, error) {
	dbc.Ctx = ctxutil.Default(dbc.Ctx)
	start := time.Now()

	u, err := s.uploads.GetByID(dbc, uploadID)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", uploadID, err)
	}
	if u == nil {
		return "", apierr.E(apierr.UploadIDNotFound, "the uploadId '%s' was not found", uploadID)
	}
	if u.State != types.UploadStateCreated {
		return u.State, nil
	}

	problems, err := s.ValidatePayload(dbc, []byte(u.Payload))
	if err != nil {
		s.log.Warn("Upload validation failed unexpectedly", "upload_id", uploadID, "error", err)
		problems = []string{unknownProcessingProblem + err.Error()}
	}
	state := types.UploadStateValidated
	if len(problems) > 0 {
		state = types.UploadStateValidationError
	} else {
		problems = []string{}
	}
	errs, err := json.Marshal(problems)
	if err != nil {
		return "", fmt.Errorf("encode validation errors: %w", err)
	}

	moved, err := s.uploads.FinishValidation(dbc, uploadID, u.Generation, state, datatypes.JSON(errs), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("record validation of %s: %w", uploadID, err)
	}
	if !moved {
		// Someone else finished first or the payload was replaced while it
		// was being checked; report what is stored.
		cur, err := s.uploads.GetByID(dbc, uploadID)
		if err != nil {
			return "", fmt.Errorf("read upload %s: %w", uploadID, err)
		}
		if cur == nil {
			return "", apierr.E(apierr.UploadIDNotFound, "the uploadId '%s' was not found", uploadID)
		}
		return cur.State, nil
	}

	observability.Current().ObserveValidation(string(state), time.Since(start))
	s.log.Info("Validated upload",
		"upload_id", uploadID,
		"study_id", u.StudyID,
		"state", state,
		"problems", len(problems),
	)
	return state, nil
}

// errMessage strips an api error down to its message.
func errMessage(err error) string {
	if e, ok := apierr.As(err); ok && e.Err != nil {
		return e.Err.Error()
	}
	return strings.TrimSpace(err.Error())
}

type inlineDispatcher struct {
	log        *logger.Logger
	validation ValidationService
}

// NewInlineDispatcher validates on a detached goroutine. It is the fallback
// when no worker pool or workflow engine is configured; the sweeper still
// recovers anything lost on shutdown.
func NewInlineDispatcher(baseLog *logger.Logger, validation ValidationService) ValidationDispatcher {
	return &inlineDispatcher{log: baseLog.With("dispatcher", "inline"), validation: validation}
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, uploadID string) error {
	ctx = context.WithoutCancel(ctxutil.Default(ctx))
	go func() {
		if _, err := d.validation.ValidateUpload(dbctx.Context{Ctx: ctx}, uploadID); err != nil {
			d.log.Warn("Deferred validation failed", "upload_id", uploadID, "error", err)
		}
	}()
	return nil
}
