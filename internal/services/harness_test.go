package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/songcatalog-backend/internal/clients/storage"
	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/jsonschema"
)

const testMD5 = "0123456789abcdef0123456789abcdef"

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]*storage.ObjectSpec
	err     error
	tokens  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]*storage.ObjectSpec{}}
}

func (f *fakeStorage) put(objectID string, size int64, md5 string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectID] = &storage.ObjectSpec{ObjectID: objectID, ObjectSize: size, ObjectMD5: md5}
}

func (f *fakeStorage) Exists(_ context.Context, token, objectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.objects[objectID]
	return ok, nil
}

func (f *fakeStorage) DownloadSpec(_ context.Context, _ string, objectID string) (*storage.ObjectSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	spec, ok := f.objects[objectID]
	if !ok {
		return nil, apierr.E(apierr.StorageObjectNotFound, "object %s not found", objectID)
	}
	cp := *spec
	return &cp, nil
}

func (f *fakeStorage) Driver() string { return "fake" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.AnalysisEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev types.AnalysisEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, string(ev.Action))
	}
	return out
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, uploadID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, uploadID)
	return nil
}

type harness struct {
	dbc        dbctx.Context
	studyID    string
	studies    StudyService
	types      AnalysisTypeService
	analyses   AnalysisService
	validation ValidationService
	uploads    UploadService
	uploadRepo repos.UploadRepo
	validator  jsonschema.Validator
	files      FileService
	entities   CompositeEntityService
	donors     DonorService
	ids        IDResolver
	storage    *fakeStorage
	events     *recordingPublisher
	dispatcher *recordingDispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	studyRepo := repos.NewStudyRepo(db, log)
	donorRepo := repos.NewDonorRepo(db, log)
	specimenRepo := repos.NewSpecimenRepo(db, log)
	sampleRepo := repos.NewSampleRepo(db, log)
	fileRepo := repos.NewFileRepo(db, log)
	uploadRepo := repos.NewUploadRepo(db, log)

	ids := NewIDResolver()
	info := NewInfoService(log, repos.NewInfoRepo(db, log))
	validator := jsonschema.NewValidator()
	studies := NewStudyService(log, studyRepo, donorRepo, specimenRepo, sampleRepo, info)
	analysisTypes := NewAnalysisTypeService(log, repos.NewAnalysisSchemaRepo(db, log), validator, false)
	donors := NewDonorService(log, donorRepo, ids, info)
	composites := NewCompositeEntityService(log,
		donors,
		NewSpecimenService(log, specimenRepo, ids, info),
		NewSampleService(log, sampleRepo, ids, info),
		donorRepo, specimenRepo, sampleRepo, info)

	store := newFakeStorage()
	events := &recordingPublisher{}
	analyses := NewAnalysisService(log, AnalysisServiceDeps{
		DB:           db,
		Analyses:     repos.NewAnalysisRepo(db, log),
		Schemas:      repos.NewAnalysisSchemaRepo(db, log),
		Data:         repos.NewAnalysisDataRepo(db, log),
		SampleSets:   repos.NewSampleSetRepo(db, log),
		StateChanges: repos.NewStateChangeRepo(db, log),
		Files:        fileRepo,
		Uploads:      uploadRepo,
		Donors:       donorRepo,
		Specimens:    specimenRepo,
		Samples:      sampleRepo,
		Studies:      studies,
		Types:        analysisTypes,
		Composites:   composites,
		Info:         info,
		IDs:          ids,
		Validator:    validator,
		Storage:      store,
		Events:       events,
		EventsDriver: "test",
	})
	validation := NewValidationService(log, uploadRepo, analysisTypes, validator, nil)
	dispatcher := &recordingDispatcher{}

	if _, err := SeedAnalysisTypes(dbc, log, analysisTypes, DefaultAnalysisTypeSeed()); err != nil {
		t.Fatalf("SeedAnalysisTypes: %v", err)
	}

	h := &harness{
		dbc:        dbc,
		studies:    studies,
		types:      analysisTypes,
		analyses:   analyses,
		validation: validation,
		uploads:    NewUploadService(log, uploadRepo, studies, analyses, validation, dispatcher, ids),
		uploadRepo: uploadRepo,
		validator:  validator,
		files:      NewFileService(db, log, fileRepo, studies, analyses, info, events, "test"),
		entities:   composites,
		donors:     donors,
		ids:        ids,
		storage:    store,
		events:     events,
		dispatcher: dispatcher,
	}
	h.studyID = h.newStudy(t)
	return h
}

func (h *harness) newStudy(t *testing.T) string {
	t.Helper()
	id := "ST" + strings.ToUpper(uuid.NewString()[:8])
	if err := h.studies.Create(h.dbc, &types.Study{ID: id, Name: "test study", Organization: "OICR"}); err != nil {
		t.Fatalf("create study: %v", err)
	}
	return id
}

type payloadOpts struct {
	studyID    string
	analysisID string
	donor      string
	sample     string
	fileName   string
	experiment string
	omit       string
}

func sequencingPayload(o payloadOpts) []byte {
	if o.donor == "" {
		o.donor = "donor-1"
	}
	if o.sample == "" {
		o.sample = "sample-1"
	}
	if o.fileName == "" {
		o.fileName = "reads.bam"
	}
	if o.experiment == "" {
		o.experiment = `{"libraryStrategy":"WGS","aligned":true,"pairedEnd":true}`
	}
	doc := map[string]any{
		"studyId":      o.studyID,
		"analysisType": map[string]any{"name": "sequencingRead"},
		"samples": []any{map[string]any{
			"submitterSampleId": o.sample,
			"sampleType":        "DNA",
			"specimen": map[string]any{
				"submitterSpecimenId":     "specimen-" + o.sample,
				"specimenType":            "Primary tumour",
				"specimenTissueSource":    "Solid tissue",
				"tumourNormalDesignation": "Tumour",
			},
			"donor": map[string]any{
				"submitterDonorId": o.donor,
				"gender":           "Female",
			},
		}},
		"files": []any{map[string]any{
			"fileName":   o.fileName,
			"fileSize":   1024,
			"fileMd5sum": testMD5,
			"fileType":   "BAM",
			"fileAccess": "open",
			"dataType":   "Aligned Reads",
		}},
		"experiment": json.RawMessage(o.experiment),
	}
	if o.analysisID != "" {
		doc["analysisId"] = o.analysisID
	}
	if o.studyID == "" {
		delete(doc, "studyId")
	}
	if o.omit != "" {
		delete(doc, o.omit)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal payload: %v", err))
	}
	return b
}

// createAnalysis stores a sequencingRead analysis and returns its id.
func (h *harness) createAnalysis(t *testing.T, o payloadOpts) string {
	t.Helper()
	if o.studyID == "" {
		o.studyID = h.studyID
	}
	id, err := h.analyses.Create(h.dbc, o.studyID, sequencingPayload(o), false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

// stageFiles puts every file of the analysis into fake storage as declared.
func (h *harness) stageFiles(t *testing.T, analysisID string) []*types.File {
	t.Helper()
	files, err := h.analyses.UnsecuredReadFiles(h.dbc, analysisID)
	if err != nil {
		t.Fatalf("UnsecuredReadFiles: %v", err)
	}
	for _, f := range files {
		h.storage.put(f.ObjectID, f.FileSize, f.FileMD5Sum)
	}
	return files
}

func (h *harness) state(t *testing.T, analysisID string) types.AnalysisState {
	t.Helper()
	v, err := h.analyses.UnsecuredDeepRead(h.dbc, analysisID)
	if err != nil {
		t.Fatalf("UnsecuredDeepRead: %v", err)
	}
	return v.AnalysisState
}

func wantCode(t *testing.T, err error, code apierr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("want=%s got=nil", code)
	}
	if got := apierr.CodeOf(err); got != code {
		t.Fatalf("want=%s got=%s (%v)", code, got, err)
	}
}
