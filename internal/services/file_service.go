package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type FileUpdateType string

const (
	FileNoUpdate       FileUpdateType = "NO_UPDATE"
	FileMetadataUpdate FileUpdateType = "METADATA_UPDATE"
	FileContentUpdate  FileUpdateType = "CONTENT_UPDATE"
)

var fileMD5Re = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)

// FileUpdateRequest carries the mutable file fields; nil means unchanged.
type FileUpdateRequest struct {
	FileSize   *int64          `json:"fileSize"`
	FileMD5Sum *string         `json:"fileMd5sum"`
	FileAccess *string         `json:"fileAccess"`
	DataType   *string         `json:"dataType"`
	Info       json.RawMessage `json:"info"`
}

type FileUpdateResponse struct {
	UnpublishedAnalysis   bool                `json:"unpublishedAnalysis"`
	OriginalAnalysisState types.AnalysisState `json:"originalAnalysisState"`
	FileUpdateType        FileUpdateType      `json:"fileUpdateType"`
	OriginalFile          *types.File         `json:"originalFile"`
	Message               string              `json:"message"`
}

type FileService interface {
	Read(dbc dbctx.Context, studyID, objectID string) (*types.File, error)
	// Update changes a file in place. A size or checksum change moves a
	// PUBLISHED analysis back to UNPUBLISHED.
	Update(dbc dbctx.Context, studyID, objectID string, req FileUpdateRequest) (*FileUpdateResponse, error)
}

type fileService struct {
	log      *logger.Logger
	db       *gorm.DB
	fileRepo repos.FileRepo
	studies  StudyService
	analyses AnalysisService
	info     InfoService
	events   *eventEmitter
}

func NewFileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	fileRepo repos.FileRepo,
	studies StudyService,
	analyses AnalysisService,
	info InfoService,
	events EventPublisher,
	eventsDriver string,
) FileService {
	log := baseLog.With("service", "FileService")
	return &fileService{
		log:      log,
		db:       db,
		fileRepo: fileRepo,
		studies:  studies,
		analyses: analyses,
		info:     info,
		events:   newEventEmitter(log, events, eventsDriver),
	}
}

func (s *fileService) Read(dbc dbctx.Context, studyID, objectID string) (*types.File, error) {
	f, err := s.fileRepo.GetByID(dbc, objectID)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", objectID, err)
	}
	if f == nil || f.StudyID != studyID {
		if err := s.studies.CheckExists(dbc, studyID); err != nil {
			return nil, err
		}
		if f == nil {
			return nil, apierr.E(apierr.FileNotFound, "the file with objectId '%s' does not exist", objectID)
		}
		return nil, apierr.E(apierr.EntityNotRelatedToStudy,
			"the file with objectId '%s' is not related to studyId '%s'", objectID, studyID)
	}
	info, err := s.info.Read(dbc, types.InfoFile, objectID)
	if err != nil {
		return nil, err
	}
	f.Info = info
	return f, nil
}

func checkFileUpdateRequest(objectID string, req FileUpdateRequest) error {
	var problems []string
	if req.FileSize != nil && *req.FileSize < 0 {
		problems = append(problems, "fileSize must not be negative")
	}
	if req.FileMD5Sum != nil && !fileMD5Re.MatchString(*req.FileMD5Sum) {
		problems = append(problems, "fileMd5sum must be a 32 character hex string")
	}
	if req.FileAccess != nil && *req.FileAccess != types.FileAccessOpen && *req.FileAccess != types.FileAccessControlled {
		problems = append(problems, fmt.Sprintf("fileAccess must be %q or %q", types.FileAccessOpen, types.FileAccessControlled))
	}
	if req.DataType != nil && strings.TrimSpace(*req.DataType) == "" {
		problems = append(problems, "dataType must not be blank")
	}
	if req.FileSize == nil && req.FileMD5Sum == nil && req.FileAccess == nil && req.DataType == nil && len(req.Info) == 0 {
		problems = append(problems, "at least one field must be updated")
	}
	if len(problems) > 0 {
		return apierr.E(apierr.InvalidFileUpdate,
			"the file update request for objectId '%s' failed with the following errors: %s", objectID, strings.Join(problems, "; "))
	}
	return nil
}

// classifyUpdate applies req to a copy of f and reports what kind of change
// it is.
func classifyUpdate(f *types.File, req FileUpdateRequest) (*types.File, FileUpdateType) {
	next := *f
	kind := FileNoUpdate
	if req.FileSize != nil && *req.FileSize != f.FileSize {
		next.FileSize = *req.FileSize
		kind = FileContentUpdate
	}
	if req.FileMD5Sum != nil && !strings.EqualFold(*req.FileMD5Sum, f.FileMD5Sum) {
		next.FileMD5Sum = strings.ToLower(*req.FileMD5Sum)
		kind = FileContentUpdate
	}
	if req.FileAccess != nil && *req.FileAccess != f.FileAccess {
		next.FileAccess = *req.FileAccess
		if kind == FileNoUpdate {
			kind = FileMetadataUpdate
		}
	}
	if req.DataType != nil && *req.DataType != f.DataType {
		next.DataType = *req.DataType
		if kind == FileNoUpdate {
			kind = FileMetadataUpdate
		}
	}
	if len(req.Info) > 0 && string(req.Info) != "null" && string(req.Info) != string(f.Info) {
		if kind == FileNoUpdate {
			kind = FileMetadataUpdate
		}
	}
	return &next, kind
}

func (s *fileService) Update(dbc dbctx.Context, studyID, objectID string, req FileUpdateRequest) (*FileUpdateResponse, error) {
	if err := checkFileUpdateRequest(objectID, req); err != nil {
		return nil, err
	}
	original, err := s.Read(dbc, studyID, objectID)
	if err != nil {
		return nil, err
	}
	view, err := s.analyses.UnsecuredDeepRead(dbc, original.AnalysisID)
	if err != nil {
		return nil, err
	}
	state := view.AnalysisState
	if state == types.AnalysisStateSuppressed {
		return nil, apierr.E(apierr.IllegalFileUpdate,
			"the file with objectId '%s' and analysisId '%s' cannot be updated since its analysisState is '%s'",
			objectID, original.AnalysisID, state)
	}

	next, kind := classifyUpdate(original, req)
	resp := &FileUpdateResponse{
		OriginalAnalysisState: state,
		FileUpdateType:        kind,
		OriginalFile:          original,
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	ctx := ctxutil.Default(dbc.Ctx)
	var ev *types.AnalysisEvent
	err = transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: txx}
		if kind != FileNoUpdate {
			if err := s.fileRepo.Update(txc, next); err != nil {
				return fmt.Errorf("update file %s: %w", objectID, err)
			}
		}
		if err := s.info.Save(txc, types.InfoFile, objectID, req.Info); err != nil {
			return err
		}
		if state == types.AnalysisStatePublished && kind == FileContentUpdate {
			var terr error
			ev, terr = s.analyses.Transition(txc, original.AnalysisID, types.AnalysisStateUnpublished)
			return terr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case ev != nil:
		s.events.emit(dbc.Ctx, *ev)
		resp.UnpublishedAnalysis = true
		resp.Message = fmt.Sprintf("[WARNING]: Changed analysis from '%s' to '%s'", types.AnalysisStatePublished, types.AnalysisStateUnpublished)
	case state == types.AnalysisStatePublished:
		resp.Message = fmt.Sprintf("Original analysisState '%s' was not changed since the fileUpdateType was '%s'", state, kind)
	default:
		resp.Message = fmt.Sprintf("Did not change analysisState since it is '%s'", state)
	}
	s.log.Info("Updated file",
		"object_id", objectID,
		"analysis_id", original.AnalysisID,
		"update_type", kind,
		"unpublished", resp.UnpublishedAnalysis,
	)
	return resp, nil
}
