package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/clients/storage"
	"github.com/yungbote/songcatalog-backend/internal/data/db"
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

const defaultStorageConcurrency = 8

// IDSearchRequest narrows a study's analyses to those touching every given
// id. Empty fields are ignored.
type IDSearchRequest struct {
	SubmitterDonorID    string `json:"submitterDonorId" form:"submitterDonorId"`
	SubmitterSpecimenID string `json:"submitterSpecimenId" form:"submitterSpecimenId"`
	SubmitterSampleID   string `json:"submitterSampleId" form:"submitterSampleId"`
	ObjectID            string `json:"objectId" form:"objectId"`
}

func (r IDSearchRequest) empty() bool {
	return r.SubmitterDonorID == "" && r.SubmitterSpecimenID == "" && r.SubmitterSampleID == "" && r.ObjectID == ""
}

type AnalysisService interface {
	Create(dbc dbctx.Context, studyID string, payload []byte, ignoreCollisions bool) (string, error)
	// CreateWith runs inTx inside the creating transaction with the new
	// analysis id, so callers can commit their own bookkeeping atomically.
	CreateWith(dbc dbctx.Context, studyID string, payload []byte, ignoreCollisions bool, inTx func(txc dbctx.Context, analysisID string) error) (string, error)
	Update(dbc dbctx.Context, studyID, analysisID string, request []byte) (*types.AnalysisView, error)
	Patch(dbc dbctx.Context, studyID, analysisID string, patch []byte) (*types.AnalysisView, error)

	// Publish verifies every file against storage before moving the analysis
	// to PUBLISHED and returns a human-readable outcome.
	Publish(dbc dbctx.Context, accessToken, studyID, analysisID string, ignoreUndefinedMd5 bool) (string, error)
	Unpublish(dbc dbctx.Context, studyID, analysisID string) error
	Suppress(dbc dbctx.Context, studyID, analysisID string) error
	// Transition applies a state change inside dbc's transaction and returns
	// the event to publish once it commits, nil when nothing changed.
	Transition(dbc dbctx.Context, analysisID string, to types.AnalysisState) (*types.AnalysisEvent, error)

	SecuredDeepRead(dbc dbctx.Context, studyID, analysisID string) (*types.AnalysisView, error)
	UnsecuredDeepRead(dbc dbctx.Context, analysisID string) (*types.AnalysisView, error)
	ReadSamples(dbc dbctx.Context, analysisID string) ([]*types.CompositeEntity, error)
	SecuredReadFiles(dbc dbctx.Context, studyID, analysisID string) ([]*types.File, error)
	UnsecuredReadFiles(dbc dbctx.Context, analysisID string) ([]*types.File, error)
	CheckAnalysisAndStudyRelated(dbc dbctx.Context, studyID, analysisID string) error

	ListByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState) ([]*types.AnalysisView, error)
	PageByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState, limit, offset int) (*types.AnalysisPage, error)
	SearchByIDs(dbc dbctx.Context, studyID string, req IDSearchRequest) ([]*types.AnalysisView, error)
}

// AnalysisServiceDeps groups the collaborators of the lifecycle manager.
type AnalysisServiceDeps struct {
	DB           *gorm.DB
	Analyses     repos.AnalysisRepo
	Schemas      repos.AnalysisSchemaRepo
	Data         repos.AnalysisDataRepo
	SampleSets   repos.SampleSetRepo
	StateChanges repos.StateChangeRepo
	Files        repos.FileRepo
	Uploads      repos.UploadRepo
	Donors       repos.DonorRepo
	Specimens    repos.SpecimenRepo
	Samples      repos.SampleRepo

	Studies     StudyService
	Types       AnalysisTypeService
	Composites  CompositeEntityService
	Info        InfoService
	IDs         IDResolver
	Validator   jsonschema.Validator
	Experiments ExperimentRegistry
	Storage     storage.Client
	Events      EventPublisher

	EventsDriver       string
	StorageConcurrency int
}

type analysisService struct {
	log    *logger.Logger
	d      AnalysisServiceDeps
	events *eventEmitter
}

func NewAnalysisService(baseLog *logger.Logger, deps AnalysisServiceDeps) AnalysisService {
	log := baseLog.With("service", "AnalysisService")
	if deps.StorageConcurrency <= 0 {
		deps.StorageConcurrency = defaultStorageConcurrency
	}
	if deps.Experiments == nil {
		deps.Experiments = DefaultExperimentRegistry()
	}
	return &analysisService{
		log:    log,
		d:      deps,
		events: newEventEmitter(log, deps.Events, deps.EventsDriver),
	}
}

// ParseAnalysisStates reads a comma separated filter. Empty means PUBLISHED.
func ParseAnalysisStates(raw string) ([]types.AnalysisState, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []types.AnalysisState{types.AnalysisStatePublished}, nil
	}
	var out []types.AnalysisState
	var bad []string
	seen := map[types.AnalysisState]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := analysis.ParseState(part)
		if err != nil {
			bad = append(bad, part)
			continue
		}
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	if len(bad) > 0 {
		return nil, apierr.E(apierr.MalformedParameter, "the following are not analysis states: '%s'", strings.Join(bad, "', '"))
	}
	if len(out) == 0 {
		return []types.AnalysisState{types.AnalysisStatePublished}, nil
	}
	return out, nil
}

func (s *analysisService) tx(dbc dbctx.Context, fn func(txc dbctx.Context) error) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.d.DB
	}
	ctx := ctxutil.Default(dbc.Ctx)
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: txx})
	})
}

// ---------- create ----------

func (s *analysisService) Create(dbc dbctx.Context, studyID string, payload []byte, ignoreCollisions bool) (string, error) {
	return s.CreateWith(dbc, studyID, payload, ignoreCollisions, nil)
}

func (s *analysisService) CreateWith(
	dbc dbctx.Context,
	studyID string,
	payload []byte,
	ignoreCollisions bool,
	inTx func(txc dbctx.Context, analysisID string) error,
) (string, error) {
	if err := s.d.Studies.CheckExists(dbc, studyID); err != nil {
		return "", err
	}
	p, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}
	if p.StudyID != "" && p.StudyID != studyID {
		return "", apierr.E(apierr.StudyIDMismatch, "payload studyId '%s' does not match the url studyId '%s'", p.StudyID, studyID)
	}
	if len(p.Samples) == 0 {
		return "", apierr.E(apierr.MalformedParameter, "a submission must contain at least one sample")
	}
	if len(p.Files) == 0 {
		return "", apierr.E(apierr.MalformedParameter, "a submission must contain at least one file")
	}
	schema, err := s.d.Types.ResolveForSubmission(dbc, p.AnalysisType)
	if err != nil {
		return "", err
	}

	analysisID := p.AnalysisID
	if analysisID == "" {
		analysisID = s.d.IDs.NewAnalysisID()
	} else if err := s.checkAnalysisIDAvailable(dbc, studyID, analysisID, ignoreCollisions); err != nil {
		return "", err
	}

	data, err := json.Marshal(p.Data)
	if err != nil {
		return "", fmt.Errorf("encode analysis data: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	err = s.tx(dbc, func(txc dbctx.Context) error {
		shell := &types.Analysis{
			ID:               analysisID,
			StudyID:          studyID,
			AnalysisSchemaID: schema.ID,
			State:            types.AnalysisStateUnpublished,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.d.Analyses.Create(txc, shell); err != nil {
			if db.IsUniqueViolation(err) {
				return apierr.E(apierr.DuplicateAnalysisAttempt, "analysisId '%s' already exists", analysisID)
			}
			return fmt.Errorf("create analysis %s: %w", analysisID, err)
		}
		if err := s.d.Data.Upsert(txc, &types.AnalysisData{AnalysisID: analysisID, Data: data, CreatedAt: now, UpdatedAt: now}); err != nil {
			return fmt.Errorf("save analysis data %s: %w", analysisID, err)
		}
		if err := s.saveSamples(txc, studyID, analysisID, p.Samples); err != nil {
			return err
		}
		if err := s.saveFiles(txc, studyID, analysisID, p.Files, now); err != nil {
			return err
		}
		if err := s.d.Info.Save(txc, types.InfoAnalysis, analysisID, p.Info); err != nil {
			return err
		}
		if inTx != nil {
			return inTx(txc, analysisID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("Created analysis",
		"analysis_id", analysisID,
		"study_id", studyID,
		"analysis_type", analysis.TypeID(schema.Name, schema.Version),
		"samples", len(p.Samples),
		"files", len(p.Files),
	)
	s.events.emit(dbc.Ctx, types.AnalysisEvent{
		AnalysisID: analysisID,
		StudyID:    studyID,
		State:      types.AnalysisStateUnpublished,
		Action:     analysis.ActionCreate,
		At:         now,
	})
	return analysisID, nil
}

// checkAnalysisIDAvailable rejects a supplied analysis id that is already
// taken. Staged uploads in other studies only block when collisions are not
// ignored; an existing analysis always blocks because the id is its key.
func (s *analysisService) checkAnalysisIDAvailable(dbc dbctx.Context, studyID, analysisID string, ignoreCollisions bool) error {
	existing, err := s.d.Analyses.GetByID(dbc, analysisID)
	if err != nil {
		return fmt.Errorf("lookup analysis %s: %w", analysisID, err)
	}
	if existing != nil {
		if existing.StudyID != studyID && !ignoreCollisions {
			return apierr.E(apierr.AnalysisIDCollision,
				"analysisId '%s' is already used in study '%s'", analysisID, existing.StudyID)
		}
		return apierr.E(apierr.DuplicateAnalysisAttempt, "analysisId '%s' already exists", analysisID)
	}
	if ignoreCollisions || s.d.Uploads == nil {
		return nil
	}
	elsewhere, err := s.d.Uploads.ExistsForAnalysisIDOutsideStudy(dbc, studyID, analysisID)
	if err != nil {
		return fmt.Errorf("check upload collisions for %s: %w", analysisID, err)
	}
	if elsewhere {
		return apierr.E(apierr.AnalysisIDCollision,
			"analysisId '%s' is already staged by another study; set ignoreAnalysisIdCollisions to proceed", analysisID)
	}
	return nil
}

func (s *analysisService) saveSamples(txc dbctx.Context, studyID, analysisID string, samples []*types.CompositeEntity) error {
	seen := map[string]bool{}
	rows := make([]*types.SampleSet, 0, len(samples))
	for _, ce := range samples {
		sampleID, err := s.d.Composites.Save(txc, studyID, ce)
		if err != nil {
			return err
		}
		if seen[sampleID] {
			continue
		}
		seen[sampleID] = true
		rows = append(rows, &types.SampleSet{AnalysisID: analysisID, SampleID: sampleID})
	}
	if err := s.d.SampleSets.Create(txc, rows); err != nil {
		return fmt.Errorf("link samples to %s: %w", analysisID, err)
	}
	return nil
}

func (s *analysisService) saveFiles(txc dbctx.Context, studyID, analysisID string, files []*types.File, now time.Time) error {
	for _, f := range files {
		if f == nil {
			return apierr.E(apierr.MalformedParameter, "file entries must be objects")
		}
		f.FileName = strings.TrimSpace(f.FileName)
		if f.FileName == "" {
			return apierr.E(apierr.MalformedParameter, "fileName is required")
		}
		computed := s.d.IDs.FileID(analysisID, f.FileName)
		if err := checkSuppliedID(apierr.FileIDIsCorrupted, "file", f.ObjectID, computed, f.FileName); err != nil {
			return err
		}
		f.ObjectID = computed
		f.AnalysisID = analysisID
		f.StudyID = studyID
		f.CreatedAt, f.UpdatedAt = now, now
		if err := s.d.Files.Upsert(txc, f); err != nil {
			return fmt.Errorf("save file %s: %w", f.FileName, err)
		}
		if err := s.d.Info.Save(txc, types.InfoFile, f.ObjectID, json.RawMessage(f.Info)); err != nil {
			return err
		}
	}
	return nil
}

// ---------- update ----------

func (s *analysisService) Update(dbc dbctx.Context, studyID, analysisID string, request []byte) (*types.AnalysisView, error) {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return nil, err
	}
	fields, err := decodeObject(request)
	if err != nil {
		return nil, err
	}
	rawType, ok := fields["analysisType"]
	if !ok || string(bytes.TrimSpace(rawType)) == "null" {
		return nil, apierr.E(apierr.MalformedParameter, "the update request does not contain the field 'analysisType'")
	}
	var ref types.AnalysisTypeRef
	if err := json.Unmarshal(rawType, &ref); err != nil {
		return nil, apierr.E(apierr.MalformedParameter, "analysisType must be an object with name and version")
	}
	schema, err := s.d.Types.ResolveForSubmission(dbc, ref)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpdate(dbc, schema, request, fields); err != nil {
		return nil, err
	}
	if err := s.replaceData(dbc, studyID, analysisID, schema.ID, fields); err != nil {
		return nil, err
	}
	return s.UnsecuredDeepRead(dbc, analysisID)
}

// Patch applies an RFC 7386 merge patch to the stored data and validates the
// result like a full update. The analysis type does not change.
func (s *analysisService) Patch(dbc dbctx.Context, studyID, analysisID string, patch []byte) (*types.AnalysisView, error) {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return nil, err
	}
	if _, err := decodeObject(patch); err != nil {
		return nil, err
	}
	shell, err := s.shallowRead(dbc, analysisID)
	if err != nil {
		return nil, err
	}
	schema, err := s.d.Types.SchemaByID(dbc, shell.AnalysisSchemaID)
	if err != nil {
		return nil, err
	}
	current, err := s.d.Data.GetByAnalysisID(dbc, analysisID)
	if err != nil {
		return nil, fmt.Errorf("read analysis data %s: %w", analysisID, err)
	}
	base := map[string]json.RawMessage{}
	if current != nil && len(current.Data) > 0 {
		if err := json.Unmarshal(current.Data, &base); err != nil {
			return nil, fmt.Errorf("decode analysis data %s: %w", analysisID, err)
		}
	}
	version := schema.Version
	typeRaw, _ := json.Marshal(types.AnalysisTypeRef{Name: schema.Name, Version: &version})
	base["analysisType"] = typeRaw
	if info, err := s.d.Info.Read(dbc, types.InfoAnalysis, analysisID); err != nil {
		return nil, err
	} else if len(info) > 0 {
		base["info"] = json.RawMessage(info)
	}
	original, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode analysis data %s: %w", analysisID, err)
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, apierr.Wrap(apierr.PayloadParsing, err, "unable to apply the patch to analysis '%s'", analysisID)
	}
	fields, err := decodeObject(merged)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpdate(dbc, schema, merged, fields); err != nil {
		return nil, err
	}
	if err := s.replaceData(dbc, studyID, analysisID, schema.ID, fields); err != nil {
		return nil, err
	}
	return s.UnsecuredDeepRead(dbc, analysisID)
}

func (s *analysisService) validateUpdate(dbc dbctx.Context, schema *types.AnalysisSchema, doc []byte, fields map[string]json.RawMessage) error {
	if err := s.d.Types.CheckLatest(dbc, schema); err != nil {
		return err
	}
	rendered, err := s.d.Types.UpdateSchema(schema)
	if err != nil {
		return fmt.Errorf("render update schema %s: %w", analysis.TypeID(schema.Name, schema.Version), err)
	}
	violations, err := s.d.Validator.Validate(rendered, doc)
	if err != nil {
		return apierr.Wrap(apierr.SchemaViolation, err, "the update request could not be validated")
	}
	if len(violations) > 0 {
		return apierr.E(apierr.SchemaViolation, "%s", strings.Join(violations, ", "))
	}
	if _, _, err := s.d.Experiments.Decode(schema.Name, fields); err != nil {
		return apierr.E(apierr.SchemaViolation, "%s", err.Error())
	}
	return nil
}

func (s *analysisService) replaceData(dbc dbctx.Context, studyID, analysisID string, schemaID uint, fields map[string]json.RawMessage) error {
	data, err := json.Marshal(stripReserved(fields))
	if err != nil {
		return fmt.Errorf("encode analysis data: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	var state types.AnalysisState
	err = s.tx(dbc, func(txc dbctx.Context) error {
		shell, err := s.d.Analyses.GetByID(txc, analysisID)
		if err != nil {
			return fmt.Errorf("read analysis %s: %w", analysisID, err)
		}
		if shell == nil {
			return apierr.E(apierr.AnalysisIDNotFound, "the analysisId '%s' was not found", analysisID)
		}
		state = shell.State
		if err := s.d.Data.Upsert(txc, &types.AnalysisData{AnalysisID: analysisID, Data: data, CreatedAt: now, UpdatedAt: now}); err != nil {
			return fmt.Errorf("save analysis data %s: %w", analysisID, err)
		}
		if info, ok := fields["info"]; ok {
			if err := s.d.Info.Save(txc, types.InfoAnalysis, analysisID, info); err != nil {
				return err
			}
		}
		if err := s.d.Analyses.UpdateSchema(txc, analysisID, schemaID, now); err != nil {
			return fmt.Errorf("update analysis %s: %w", analysisID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Updated analysis", "analysis_id", analysisID, "study_id", studyID)
	s.events.emit(dbc.Ctx, types.AnalysisEvent{
		AnalysisID: analysisID,
		StudyID:    studyID,
		State:      state,
		Action:     analysis.ActionUpdate,
		At:         now,
	})
	return nil
}

// ---------- lifecycle ----------

func (s *analysisService) Publish(dbc dbctx.Context, accessToken, studyID, analysisID string, ignoreUndefinedMd5 bool) (string, error) {
	m := observability.Current()
	msg, err := s.publish(dbc, accessToken, studyID, analysisID, ignoreUndefinedMd5)
	if err != nil {
		outcome := string(apierr.CodeOf(err))
		if outcome == "" {
			outcome = string(apierr.UnknownError)
		}
		m.IncPublish(strings.ToLower(outcome))
		return "", err
	}
	m.IncPublish("ok")
	return msg, nil
}

func (s *analysisService) publish(dbc dbctx.Context, accessToken, studyID, analysisID string, ignoreUndefinedMd5 bool) (string, error) {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return "", err
	}
	shell, err := s.shallowRead(dbc, analysisID)
	if err != nil {
		return "", err
	}
	if shell.State == types.AnalysisStateSuppressed {
		return "", apierr.E(apierr.SuppressedStateTransition,
			"cannot change the analysis state for analysisId '%s' from '%s' to '%s'",
			analysisID, types.AnalysisStateSuppressed, types.AnalysisStatePublished)
	}
	schema, err := s.d.Types.SchemaByID(dbc, shell.AnalysisSchemaID)
	if err != nil {
		return "", err
	}
	if err := s.d.Types.CheckLatest(dbc, schema); err != nil {
		return "", err
	}
	files, err := s.UnsecuredReadFiles(dbc, analysisID)
	if err != nil {
		return "", err
	}
	if s.d.Storage == nil {
		return "", apierr.E(apierr.ServiceUnavailable, "no storage service is configured")
	}
	if accessToken == "" {
		accessToken = ctxutil.AccessToken(dbc.Ctx)
	}
	if err := s.checkFilesUploaded(dbc, accessToken, analysisID, files); err != nil {
		return "", err
	}
	specs, err := s.downloadSpecs(dbc, accessToken, files)
	if err != nil {
		return "", err
	}
	if err := checkMismatchingSizes(analysisID, files, specs); err != nil {
		return "", err
	}
	warning, err := checkMismatchingChecksums(analysisID, files, specs, ignoreUndefinedMd5)
	if err != nil {
		return "", err
	}

	var ev *types.AnalysisEvent
	err = s.tx(dbc, func(txc dbctx.Context) error {
		var terr error
		ev, terr = s.Transition(txc, analysisID, types.AnalysisStatePublished)
		return terr
	})
	if err != nil {
		return "", err
	}
	if ev != nil {
		s.events.emit(dbc.Ctx, *ev)
	}
	s.log.Info("Published analysis", "analysis_id", analysisID, "study_id", studyID, "files", len(files))

	msg := fmt.Sprintf("AnalysisId %s successfully published", analysisID)
	if warning != "" {
		msg = warning + " " + msg
	}
	return msg, nil
}

func (s *analysisService) checkFilesUploaded(dbc dbctx.Context, token, analysisID string, files []*types.File) error {
	exists := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
	g.SetLimit(s.d.StorageConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			ok, err := s.d.Storage.Exists(gctx, token, f.ObjectID)
			if err != nil {
				return err
			}
			exists[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return storageFailure(err)
	}
	var missing []string
	for i, f := range files {
		if !exists[i] {
			missing = append(missing, f.ObjectID)
		}
	}
	if len(missing) > 0 {
		return apierr.E(apierr.MissingStorageObjects,
			"the following storage objectIds must be uploaded to the storage server before the analysisId %s can be published: %s",
			analysisID, strings.Join(missing, ","))
	}
	return nil
}

func (s *analysisService) downloadSpecs(dbc dbctx.Context, token string, files []*types.File) ([]*storage.ObjectSpec, error) {
	specs := make([]*storage.ObjectSpec, len(files))
	g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
	g.SetLimit(s.d.StorageConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			spec, err := s.d.Storage.DownloadSpec(gctx, token, f.ObjectID)
			if err != nil {
				return err
			}
			specs[i] = spec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storageFailure(err)
	}
	return specs, nil
}

// storageFailure keeps coded storage errors and classifies anything else as
// a storage outage, never as a missing object.
func storageFailure(err error) error {
	if _, ok := apierr.As(err); ok {
		return err
	}
	return apierr.Wrap(apierr.StorageServiceError, err, "storage check failed")
}

func checkMismatchingSizes(analysisID string, files []*types.File, specs []*storage.ObjectSpec) error {
	var mismatches []string
	for i, f := range files {
		if specs[i] == nil || specs[i].ObjectSize != f.FileSize {
			got := int64(0)
			if specs[i] != nil {
				got = specs[i].ObjectSize
			}
			mismatches = append(mismatches, fmt.Sprintf("%s (declared %s, stored %s)",
				f.ObjectID, humanize.Bytes(uint64(max(f.FileSize, 0))), humanize.Bytes(uint64(max(got, 0)))))
		}
	}
	if len(mismatches) > 0 {
		return apierr.E(apierr.MismatchingStorageObjectSizes,
			"the following file objectIds have mismatching object sizes in the storage server: [%s]. The analysisId '%s' cannot be published until they all match",
			strings.Join(mismatches, ", "), analysisID)
	}
	return nil
}

// checkMismatchingChecksums compares md5s. Objects without a stored md5 fail
// the check unless ignoreUndefined, in which case a warning is returned.
func checkMismatchingChecksums(analysisID string, files []*types.File, specs []*storage.ObjectSpec, ignoreUndefined bool) (string, error) {
	var undefined, mismatching []string
	for i, f := range files {
		spec := specs[i]
		if spec == nil || spec.ObjectMD5 == "" {
			undefined = append(undefined, f.ObjectID)
			continue
		}
		if !strings.EqualFold(spec.ObjectMD5, f.FileMD5Sum) {
			mismatching = append(mismatching, f.ObjectID)
		}
	}
	if len(mismatching) == 0 && (ignoreUndefined || len(undefined) == 0) {
		if len(undefined) > 0 {
			return fmt.Sprintf("[WARNING]: Ignoring objectIds with an undefined MD5 checksum(%d): [%s].",
				len(undefined), strings.Join(undefined, ", ")), nil
		}
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("Found files with a mismatching md5 checksum in the storage server. ")
	if len(undefined) > 0 {
		fmt.Fprintf(&sb, "ObjectIds with an undefined md5 checksum(%d): [%s]. ", len(undefined), strings.Join(undefined, ", "))
	}
	if len(mismatching) > 0 {
		fmt.Fprintf(&sb, "ObjectIds with a defined and mismatching md5 checksum(%d): [%s]. ", len(mismatching), strings.Join(mismatching, ", "))
	}
	fmt.Fprintf(&sb, "The analysisId '%s' cannot be published until all files with an undefined checksum are ignored and ones with a defined checksum are matching", analysisID)
	return "", apierr.E(apierr.MismatchingStorageObjectChecksums, "%s", sb.String())
}

func (s *analysisService) Unpublish(dbc dbctx.Context, studyID, analysisID string) error {
	return s.changeState(dbc, studyID, analysisID, types.AnalysisStateUnpublished)
}

func (s *analysisService) Suppress(dbc dbctx.Context, studyID, analysisID string) error {
	return s.changeState(dbc, studyID, analysisID, types.AnalysisStateSuppressed)
}

func (s *analysisService) changeState(dbc dbctx.Context, studyID, analysisID string, to types.AnalysisState) error {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return err
	}
	var ev *types.AnalysisEvent
	err := s.tx(dbc, func(txc dbctx.Context) error {
		var terr error
		ev, terr = s.Transition(txc, analysisID, to)
		return terr
	})
	if err != nil {
		return err
	}
	if ev != nil {
		s.events.emit(dbc.Ctx, *ev)
		s.log.Info("Changed analysis state", "analysis_id", analysisID, "study_id", studyID, "state", to)
	}
	return nil
}

func (s *analysisService) Transition(dbc dbctx.Context, analysisID string, to types.AnalysisState) (*types.AnalysisEvent, error) {
	shell, err := s.shallowRead(dbc, analysisID)
	if err != nil {
		return nil, err
	}
	from := shell.State
	if from == to {
		return nil, nil
	}
	if from == types.AnalysisStateSuppressed {
		return nil, apierr.E(apierr.SuppressedStateTransition,
			"cannot change the analysis state for analysisId '%s' from '%s' to '%s'", analysisID, from, to)
	}

	history, err := s.d.StateChanges.ListByAnalysisID(dbc, analysisID)
	if err != nil {
		return nil, fmt.Errorf("read state history %s: %w", analysisID, err)
	}
	at := time.Now().UTC().Truncate(time.Microsecond)
	if n := len(history); n > 0 {
		last := history[n-1].UpdatedAt.UTC()
		if !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}

	moved, err := s.d.Analyses.UpdateState(dbc, analysisID, from, to, at)
	if err != nil {
		return nil, fmt.Errorf("update analysis state %s: %w", analysisID, err)
	}
	if !moved {
		return nil, apierr.E(apierr.ConcurrentModification,
			"analysis '%s' changed state while moving from %s to %s; retry the request", analysisID, from, to)
	}
	if err := s.d.StateChanges.Append(dbc, &types.AnalysisStateChange{
		AnalysisID:   analysisID,
		InitialState: from,
		UpdatedState: to,
		UpdatedAt:    at,
	}); err != nil {
		return nil, fmt.Errorf("append state history %s: %w", analysisID, err)
	}
	observability.Current().IncStateTransition(string(from), string(to))
	return &types.AnalysisEvent{
		AnalysisID: analysisID,
		StudyID:    shell.StudyID,
		State:      to,
		Action:     actionFor(to),
		At:         at,
	}, nil
}

func actionFor(to types.AnalysisState) types.AnalysisAction {
	switch to {
	case types.AnalysisStatePublished:
		return analysis.ActionPublish
	case types.AnalysisStateSuppressed:
		return analysis.ActionSuppress
	default:
		return analysis.ActionUnpublish
	}
}

// ---------- reads ----------

func (s *analysisService) shallowRead(dbc dbctx.Context, analysisID string) (*types.Analysis, error) {
	a, err := s.d.Analyses.GetByID(dbc, analysisID)
	if err != nil {
		return nil, fmt.Errorf("read analysis %s: %w", analysisID, err)
	}
	if a == nil {
		return nil, apierr.E(apierr.AnalysisIDNotFound, "the analysisId '%s' was not found", analysisID)
	}
	return a, nil
}

func (s *analysisService) CheckAnalysisAndStudyRelated(dbc dbctx.Context, studyID, analysisID string) error {
	a, err := s.d.Analyses.GetByID(dbc, analysisID)
	if err != nil {
		return fmt.Errorf("read analysis %s: %w", analysisID, err)
	}
	if a != nil && a.StudyID == studyID {
		return nil
	}
	if err := s.d.Studies.CheckExists(dbc, studyID); err != nil {
		return err
	}
	if a == nil {
		return apierr.E(apierr.AnalysisIDNotFound, "the analysisId '%s' was not found", analysisID)
	}
	return apierr.E(apierr.EntityNotRelatedToStudy,
		"the analysisId '%s' is not related to the input studyId '%s'. It is actually related to studyId '%s'",
		analysisID, studyID, a.StudyID)
}

func (s *analysisService) SecuredDeepRead(dbc dbctx.Context, studyID, analysisID string) (*types.AnalysisView, error) {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return nil, err
	}
	return s.UnsecuredDeepRead(dbc, analysisID)
}

func (s *analysisService) UnsecuredDeepRead(dbc dbctx.Context, analysisID string) (*types.AnalysisView, error) {
	shell, err := s.shallowRead(dbc, analysisID)
	if err != nil {
		return nil, err
	}
	views, err := s.assemble(dbc, []*types.Analysis{shell})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *analysisService) ReadSamples(dbc dbctx.Context, analysisID string) ([]*types.CompositeEntity, error) {
	ids, err := s.d.SampleSets.ListSampleIDs(dbc, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list samples of %s: %w", analysisID, err)
	}
	if len(ids) == 0 {
		if _, err := s.shallowRead(dbc, analysisID); err != nil {
			return nil, err
		}
		return nil, apierr.E(apierr.AnalysisMissingSamples,
			"the analysis with analysisId '%s' is missing samples and is therefore corrupted. It should map to at least 1 sample", analysisID)
	}
	samples, err := s.d.Composites.ReadMany(dbc, ids)
	if err != nil {
		return nil, err
	}
	// links whose sample rows are gone are as corrupt as no links at all
	if len(samples) < len(ids) {
		return nil, apierr.E(apierr.AnalysisMissingSamples,
			"the analysis with analysisId '%s' links %d samples but only %d exist and is therefore corrupted",
			analysisID, len(ids), len(samples))
	}
	return samples, nil
}

func (s *analysisService) SecuredReadFiles(dbc dbctx.Context, studyID, analysisID string) ([]*types.File, error) {
	if err := s.CheckAnalysisAndStudyRelated(dbc, studyID, analysisID); err != nil {
		return nil, err
	}
	return s.UnsecuredReadFiles(dbc, analysisID)
}

func (s *analysisService) UnsecuredReadFiles(dbc dbctx.Context, analysisID string) ([]*types.File, error) {
	files, err := s.d.Files.ListByAnalysisID(dbc, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", analysisID, err)
	}
	if len(files) == 0 {
		if _, err := s.shallowRead(dbc, analysisID); err != nil {
			return nil, err
		}
		return nil, apierr.E(apierr.AnalysisMissingFiles,
			"the analysis with analysisId '%s' is missing files and is therefore corrupted. It should contain at least 1 file", analysisID)
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ObjectID)
	}
	infos, err := s.d.Info.ReadMany(dbc, types.InfoFile, ids)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		f.Info = infos[f.ObjectID]
	}
	return files, nil
}

// assemble builds full views for shells, batching the per-table reads.
func (s *analysisService) assemble(dbc dbctx.Context, shells []*types.Analysis) ([]*types.AnalysisView, error) {
	if len(shells) == 0 {
		return []*types.AnalysisView{}, nil
	}
	ids := make([]string, 0, len(shells))
	schemaIDs := make([]uint, 0, len(shells))
	for _, a := range shells {
		ids = append(ids, a.ID)
		schemaIDs = append(schemaIDs, a.AnalysisSchemaID)
	}
	schemas, err := s.d.Schemas.GetByIDs(dbc, schemaIDs)
	if err != nil {
		return nil, fmt.Errorf("read analysis schemas: %w", err)
	}
	data, err := s.d.Data.GetByAnalysisIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("read analysis data: %w", err)
	}
	history, err := s.d.StateChanges.ListByAnalysisIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("read state history: %w", err)
	}
	infos, err := s.d.Info.ReadMany(dbc, types.InfoAnalysis, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*types.AnalysisView, 0, len(shells))
	for _, a := range shells {
		v := &types.AnalysisView{
			AnalysisID:    a.ID,
			StudyID:       a.StudyID,
			AnalysisState: a.State,
			CreatedAt:     a.CreatedAt,
			UpdatedAt:     a.UpdatedAt,
			StateHistory:  history[a.ID],
		}
		if v.StateHistory == nil {
			v.StateHistory = []types.AnalysisStateChange{}
		}
		if sc := schemas[a.AnalysisSchemaID]; sc != nil {
			version := sc.Version
			v.AnalysisType = types.AnalysisTypeRef{Name: sc.Name, Version: &version}
		}
		if d := data[a.ID]; d != nil && len(d.Data) > 0 {
			if err := json.Unmarshal(d.Data, &v.Data); err != nil {
				return nil, fmt.Errorf("decode analysis data %s: %w", a.ID, err)
			}
		}
		if info := infos[a.ID]; len(info) > 0 {
			v.Info = json.RawMessage(info)
		}
		files, err := s.UnsecuredReadFiles(dbc, a.ID)
		if err != nil {
			return nil, err
		}
		v.Files = files
		samples, err := s.ReadSamples(dbc, a.ID)
		if err != nil {
			return nil, err
		}
		v.Samples = samples
		v.PopulatePublishTimes()
		out = append(out, v)
	}
	return out, nil
}

func (s *analysisService) ListByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState) ([]*types.AnalysisView, error) {
	if err := s.d.Studies.CheckExists(dbc, studyID); err != nil {
		return nil, err
	}
	if len(states) == 0 {
		states = []types.AnalysisState{types.AnalysisStatePublished}
	}
	shells, err := s.d.Analyses.ListByStudy(dbc, studyID, states)
	if err != nil {
		return nil, fmt.Errorf("list analyses of %s: %w", studyID, err)
	}
	return s.assemble(dbc, shells)
}

func (s *analysisService) PageByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState, limit, offset int) (*types.AnalysisPage, error) {
	if limit <= 0 {
		return nil, apierr.E(apierr.MalformedParameter, "limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, apierr.E(apierr.MalformedParameter, "offset must not be negative, got %d", offset)
	}
	if err := s.d.Studies.CheckExists(dbc, studyID); err != nil {
		return nil, err
	}
	if len(states) == 0 {
		states = []types.AnalysisState{types.AnalysisStatePublished}
	}
	shells, total, err := s.d.Analyses.PageByStudy(dbc, studyID, states, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("page analyses of %s: %w", studyID, err)
	}
	views, err := s.assemble(dbc, shells)
	if err != nil {
		return nil, err
	}
	return &types.AnalysisPage{
		Analyses:             views,
		CurrentTotalAnalyses: len(views),
		TotalAnalyses:        total,
	}, nil
}

func (s *analysisService) SearchByIDs(dbc dbctx.Context, studyID string, req IDSearchRequest) ([]*types.AnalysisView, error) {
	req.SubmitterDonorID = strings.TrimSpace(req.SubmitterDonorID)
	req.SubmitterSpecimenID = strings.TrimSpace(req.SubmitterSpecimenID)
	req.SubmitterSampleID = strings.TrimSpace(req.SubmitterSampleID)
	req.ObjectID = strings.TrimSpace(req.ObjectID)
	if req.empty() {
		return s.ListByStudy(dbc, studyID, analysis.AllStates)
	}
	if err := s.d.Studies.CheckExists(dbc, studyID); err != nil {
		return nil, err
	}

	var sets [][]string
	if req.SubmitterDonorID != "" {
		ids, err := s.analysisIDsForDonor(dbc, studyID, req.SubmitterDonorID)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ids)
	}
	if req.SubmitterSpecimenID != "" {
		ids, err := s.analysisIDsForSpecimen(dbc, studyID, req.SubmitterSpecimenID)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ids)
	}
	if req.SubmitterSampleID != "" {
		sa, err := s.d.Samples.GetBySubmitterID(dbc, studyID, req.SubmitterSampleID)
		if err != nil {
			return nil, fmt.Errorf("lookup sample %s: %w", req.SubmitterSampleID, err)
		}
		var ids []string
		if sa != nil {
			if ids, err = s.analysisIDsForSamples(dbc, []string{sa.ID}); err != nil {
				return nil, err
			}
		}
		sets = append(sets, ids)
	}
	if req.ObjectID != "" {
		ids, err := s.d.Files.ListAnalysisIDsByObjectIDs(dbc, studyID, []string{req.ObjectID})
		if err != nil {
			return nil, fmt.Errorf("lookup file %s: %w", req.ObjectID, err)
		}
		sets = append(sets, ids)
	}

	matched := intersectAll(sets)
	if len(matched) == 0 {
		return []*types.AnalysisView{}, nil
	}
	shells, err := s.d.Analyses.GetByIDs(dbc, matched)
	if err != nil {
		return nil, fmt.Errorf("read analyses: %w", err)
	}
	inStudy := shells[:0]
	for _, a := range shells {
		if a.StudyID == studyID {
			inStudy = append(inStudy, a)
		}
	}
	sort.Slice(inStudy, func(i, j int) bool { return inStudy[i].ID < inStudy[j].ID })
	return s.assemble(dbc, inStudy)
}

func (s *analysisService) analysisIDsForDonor(dbc dbctx.Context, studyID, submitterID string) ([]string, error) {
	donor, err := s.d.Donors.GetBySubmitterID(dbc, studyID, submitterID)
	if err != nil {
		return nil, fmt.Errorf("lookup donor %s: %w", submitterID, err)
	}
	if donor == nil {
		return nil, nil
	}
	specimens, err := s.d.Specimens.ListByDonorIDs(dbc, []string{donor.ID})
	if err != nil {
		return nil, fmt.Errorf("list specimens of donor %s: %w", donor.ID, err)
	}
	specimenIDs := make([]string, 0, len(specimens))
	for _, sp := range specimens {
		specimenIDs = append(specimenIDs, sp.ID)
	}
	return s.analysisIDsForSpecimenIDs(dbc, specimenIDs)
}

func (s *analysisService) analysisIDsForSpecimen(dbc dbctx.Context, studyID, submitterID string) ([]string, error) {
	sp, err := s.d.Specimens.GetBySubmitterID(dbc, studyID, submitterID)
	if err != nil {
		return nil, fmt.Errorf("lookup specimen %s: %w", submitterID, err)
	}
	if sp == nil {
		return nil, nil
	}
	return s.analysisIDsForSpecimenIDs(dbc, []string{sp.ID})
}

func (s *analysisService) analysisIDsForSpecimenIDs(dbc dbctx.Context, specimenIDs []string) ([]string, error) {
	if len(specimenIDs) == 0 {
		return nil, nil
	}
	samples, err := s.d.Samples.ListBySpecimenIDs(dbc, specimenIDs)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	sampleIDs := make([]string, 0, len(samples))
	for _, sa := range samples {
		sampleIDs = append(sampleIDs, sa.ID)
	}
	return s.analysisIDsForSamples(dbc, sampleIDs)
}

func (s *analysisService) analysisIDsForSamples(dbc dbctx.Context, sampleIDs []string) ([]string, error) {
	if len(sampleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.d.SampleSets.ListBySampleIDs(dbc, sampleIDs)
	if err != nil {
		return nil, fmt.Errorf("list sample links: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.AnalysisID)
	}
	return out, nil
}

// intersectAll keeps ids present in every set, deduplicated.
func intersectAll(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, set := range sets {
		seen := map[string]bool{}
		for _, id := range set {
			if seen[id] {
				continue
			}
			seen[id] = true
			counts[id]++
		}
	}
	var out []string
	for id, n := range counts {
		if n == len(sets) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
