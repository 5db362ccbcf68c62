package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/db"
	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/domain/analysis"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/jsonschema"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

const (
	reservedRegistrationName = "registration"
	maxRegisterAttempts      = 5
)

// DefaultTypeListLimit is the page size used when a caller names none.
const DefaultTypeListLimit = 20

var analysisTypeNameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

var typeSortColumns = map[string]string{
	"version":   "version",
	"name":      "name",
	"createdAt": "created_at",
}

type AnalysisTypeQuery struct {
	Names          []string
	Versions       []int
	Offset         int
	Limit          int
	Sort           string
	SortOrder      string
	HideSchema     bool
	UnrenderedOnly bool
}

type AnalysisTypeService interface {
	Register(dbc dbctx.Context, name string, schema json.RawMessage) (*types.AnalysisType, error)
	Get(dbc dbctx.Context, name string, version *int, unrenderedOnly bool) (*types.AnalysisType, error)
	GetByTypeID(dbc dbctx.Context, typeID string, unrenderedOnly bool) (*types.AnalysisType, error)
	List(dbc dbctx.Context, q AnalysisTypeQuery) (*types.AnalysisTypePage, error)
	ListNames(dbc dbctx.Context) ([]string, error)
	RegistrationSchema() json.RawMessage

	// ResolveForSubmission maps a payload reference to a stored schema; a nil
	// version means latest. Stale versions are rejected when latest is
	// enforced.
	ResolveForSubmission(dbc dbctx.Context, ref types.AnalysisTypeRef) (*types.AnalysisSchema, error)
	SchemaByID(dbc dbctx.Context, id uint) (*types.AnalysisSchema, error)
	CheckLatest(dbc dbctx.Context, schema *types.AnalysisSchema) error
	PayloadSchema(schema *types.AnalysisSchema) ([]byte, error)
	UpdateSchema(schema *types.AnalysisSchema) ([]byte, error)
}

type analysisTypeService struct {
	log           *logger.Logger
	schemaRepo    repos.AnalysisSchemaRepo
	validator     jsonschema.Validator
	enforceLatest bool
}

func NewAnalysisTypeService(
	baseLog *logger.Logger,
	schemaRepo repos.AnalysisSchemaRepo,
	validator jsonschema.Validator,
	enforceLatest bool,
) AnalysisTypeService {
	return &analysisTypeService{
		log:           baseLog.With("service", "AnalysisTypeService"),
		schemaRepo:    schemaRepo,
		validator:     validator,
		enforceLatest: enforceLatest,
	}
}

func (s *analysisTypeService) Register(dbc dbctx.Context, name string, schema json.RawMessage) (*types.AnalysisType, error) {
	name = strings.TrimSpace(name)
	if !analysisTypeNameRe.MatchString(name) {
		return nil, apierr.E(apierr.MalformedParameter, "analysis type name %q must match %s", name, analysisTypeNameRe.String())
	}
	if strings.EqualFold(name, reservedRegistrationName) {
		return nil, apierr.E(apierr.MalformedParameter, "analysis type name %q is reserved", name)
	}

	var schemaObj map[string]any
	if err := json.Unmarshal(schema, &schemaObj); err != nil || schemaObj == nil {
		return nil, apierr.E(apierr.MalformedJSONSchema, "analysis type schema must be a JSON object")
	}

	doc, err := json.Marshal(map[string]any{"name": name, "schema": schemaObj})
	if err != nil {
		return nil, fmt.Errorf("encode registration request: %w", err)
	}
	violations, err := s.validator.Validate(registrationSchema, doc)
	if err != nil {
		return nil, fmt.Errorf("validate registration: %w", err)
	}
	if len(violations) > 0 {
		return nil, apierr.E(apierr.SchemaViolation, "analysis type registration is invalid: %s", strings.Join(violations, "; "))
	}
	if err := s.validator.Compile(schema); err != nil {
		return nil, apierr.Wrap(apierr.MalformedJSONSchema, err, "analysis type %q schema does not compile", name)
	}
	rendered, err := renderPayloadSchema(schema)
	if err != nil {
		return nil, apierr.Wrap(apierr.MalformedJSONSchema, err, "render analysis type %q", name)
	}
	if err := s.validator.Compile(rendered); err != nil {
		return nil, apierr.Wrap(apierr.MalformedJSONSchema, err, "rendered analysis type %q schema does not compile", name)
	}

	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		count, err := s.schemaRepo.CountByName(dbc, name)
		if err != nil {
			return nil, fmt.Errorf("count analysis type versions: %w", err)
		}
		row := &types.AnalysisSchema{
			Name:      name,
			Version:   int(count) + 1,
			Schema:    datatypes.JSON(schema),
			CreatedAt: time.Now().UTC(),
		}
		err = s.schemaRepo.Create(dbc, row)
		if err == nil {
			s.log.Info("Registered analysis type", "name", name, "version", row.Version)
			return s.toType(row, false, false)
		}
		if !db.IsUniqueViolation(err) || dbc.Tx != nil {
			return nil, fmt.Errorf("create analysis type: %w", err)
		}
		s.log.Warn("Analysis type version taken concurrently, retrying", "name", name, "version", row.Version, "attempt", attempt)
	}
	return nil, apierr.E(apierr.ConcurrentModification, "could not register analysis type %q after %d attempts", name, maxRegisterAttempts)
}

func (s *analysisTypeService) Get(dbc dbctx.Context, name string, version *int, unrenderedOnly bool) (*types.AnalysisType, error) {
	row, err := s.lookup(dbc, name, version)
	if err != nil {
		return nil, err
	}
	return s.toType(row, false, unrenderedOnly)
}

func (s *analysisTypeService) GetByTypeID(dbc dbctx.Context, typeID string, unrenderedOnly bool) (*types.AnalysisType, error) {
	name, version, err := ParseAnalysisTypeID(typeID)
	if err != nil {
		return nil, err
	}
	return s.Get(dbc, name, &version, unrenderedOnly)
}

func (s *analysisTypeService) List(dbc dbctx.Context, q AnalysisTypeQuery) (*types.AnalysisTypePage, error) {
	if q.Offset < 0 {
		return nil, apierr.E(apierr.MalformedParameter, "offset must be >= 0, got %d", q.Offset)
	}
	if q.Limit < 1 {
		return nil, apierr.E(apierr.MalformedParameter, "limit must be > 0, got %d", q.Limit)
	}
	for _, v := range q.Versions {
		if v < 1 {
			return nil, apierr.E(apierr.MalformedParameter, "versions must be >= 1, got %d", v)
		}
	}
	sort := strings.TrimSpace(q.Sort)
	if sort == "" {
		sort = "version"
	}
	col, ok := typeSortColumns[sort]
	if !ok {
		return nil, apierr.E(apierr.MalformedParameter, "cannot sort analysis types by %q", sort)
	}
	desc := false
	switch strings.ToUpper(strings.TrimSpace(q.SortOrder)) {
	case "", "ASC":
	case "DESC":
		desc = true
	default:
		return nil, apierr.E(apierr.MalformedParameter, "sortOrder must be ASC or DESC, got %q", q.SortOrder)
	}

	rows, total, err := s.schemaRepo.Page(dbc, repos.SchemaFilter{
		Names:      q.Names,
		Versions:   q.Versions,
		Offset:     q.Offset,
		Limit:      q.Limit,
		SortColumn: col,
		Desc:       desc,
	})
	if err != nil {
		return nil, fmt.Errorf("list analysis types: %w", err)
	}
	page := &types.AnalysisTypePage{
		Limit:   q.Limit,
		Offset:  q.Offset,
		Count:   total,
		Results: make([]*types.AnalysisType, 0, len(rows)),
	}
	for _, row := range rows {
		t, err := s.toType(row, q.HideSchema, q.UnrenderedOnly)
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, t)
	}
	page.ResultSize = len(page.Results)
	return page, nil
}

func (s *analysisTypeService) ListNames(dbc dbctx.Context) ([]string, error) {
	names, err := s.schemaRepo.ListNames(dbc)
	if err != nil {
		return nil, fmt.Errorf("list analysis type names: %w", err)
	}
	return names, nil
}

func (s *analysisTypeService) RegistrationSchema() json.RawMessage {
	return json.RawMessage(registrationSchema)
}

func (s *analysisTypeService) ResolveForSubmission(dbc dbctx.Context, ref types.AnalysisTypeRef) (*types.AnalysisSchema, error) {
	if strings.TrimSpace(ref.Name) == "" {
		return nil, apierr.E(apierr.MalformedParameter, "analysisType.name is required")
	}
	row, err := s.lookup(dbc, ref.Name, ref.Version)
	if err != nil {
		return nil, err
	}
	if ref.Version != nil {
		if err := s.CheckLatest(dbc, row); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *analysisTypeService) SchemaByID(dbc dbctx.Context, id uint) (*types.AnalysisSchema, error) {
	row, err := s.schemaRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis schema %d: %w", id, err)
	}
	if row == nil {
		return nil, apierr.E(apierr.AnalysisTypeNotFound, "analysis schema %d does not exist", id)
	}
	return row, nil
}

func (s *analysisTypeService) CheckLatest(dbc dbctx.Context, schema *types.AnalysisSchema) error {
	if !s.enforceLatest || schema == nil {
		return nil
	}
	latest, err := s.schemaRepo.GetLatest(dbc, schema.Name)
	if err != nil {
		return fmt.Errorf("get latest analysis type %q: %w", schema.Name, err)
	}
	if latest != nil && latest.Version != schema.Version {
		return apierr.E(apierr.AnalysisTypeIncorrectVersion,
			"analysis type %q version %d is not the latest version %d",
			schema.Name, schema.Version, latest.Version)
	}
	return nil
}

func (s *analysisTypeService) PayloadSchema(schema *types.AnalysisSchema) ([]byte, error) {
	return renderPayloadSchema(schema.Schema)
}

func (s *analysisTypeService) UpdateSchema(schema *types.AnalysisSchema) ([]byte, error) {
	return renderUpdateSchema(schema.Schema)
}

func (s *analysisTypeService) lookup(dbc dbctx.Context, name string, version *int) (*types.AnalysisSchema, error) {
	if version != nil && *version < 1 {
		return nil, apierr.E(apierr.MalformedParameter, "analysis type version must be >= 1, got %d", *version)
	}
	latest, err := s.schemaRepo.GetLatest(dbc, name)
	if err != nil {
		return nil, fmt.Errorf("get latest analysis type %q: %w", name, err)
	}
	if latest == nil {
		return nil, apierr.E(apierr.AnalysisTypeNotFound, "analysis type %q does not exist", name)
	}
	if version == nil || *version == latest.Version {
		return latest, nil
	}
	row, err := s.schemaRepo.GetByNameVersion(dbc, name, *version)
	if err != nil {
		return nil, fmt.Errorf("get analysis type %s: %w", analysis.TypeID(name, *version), err)
	}
	if row == nil {
		return nil, apierr.E(apierr.AnalysisTypeNotFound,
			"analysis type %q version %d does not exist; the latest version is %d",
			name, *version, latest.Version)
	}
	return row, nil
}

func (s *analysisTypeService) toType(row *types.AnalysisSchema, hideSchema, unrenderedOnly bool) (*types.AnalysisType, error) {
	createdAt := row.CreatedAt
	out := &types.AnalysisType{
		Name:      row.Name,
		Version:   row.Version,
		CreatedAt: &createdAt,
	}
	if hideSchema {
		return out, nil
	}
	if unrenderedOnly {
		out.Schema = json.RawMessage(row.Schema)
		return out, nil
	}
	rendered, err := renderPayloadSchema(row.Schema)
	if err != nil {
		return nil, fmt.Errorf("render analysis type %s: %w", analysis.TypeID(row.Name, row.Version), err)
	}
	out.Schema = rendered
	return out, nil
}

// ParseAnalysisTypeID splits "name:version".
func ParseAnalysisTypeID(typeID string) (string, int, error) {
	idx := strings.LastIndex(typeID, ":")
	if idx <= 0 || idx == len(typeID)-1 {
		return "", 0, apierr.E(apierr.MalformedParameter, "analysis type id %q must look like name:version", typeID)
	}
	name := typeID[:idx]
	version, err := strconv.Atoi(typeID[idx+1:])
	if err != nil {
		return "", 0, apierr.E(apierr.MalformedParameter, "analysis type id %q has a non-numeric version", typeID)
	}
	if version < 1 {
		return "", 0, apierr.E(apierr.MalformedParameter, "analysis type id %q has a version below 1", typeID)
	}
	return name, version, nil
}
