package services

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

const statusOK = "ok"

type UploadService interface {
	// Upload stages a submission and either validates it before returning or
	// hands it to the dispatcher when async is set.
	Upload(dbc dbctx.Context, studyID string, payload []byte, async bool) (*types.UploadStatus, error)
	Status(dbc dbctx.Context, studyID, uploadID string) (*types.Upload, error)
	// Save turns a VALIDATED upload into an analysis and marks it SAVED in
	// the same transaction.
	Save(dbc dbctx.Context, studyID, uploadID string, ignoreAnalysisIDCollisions bool) (*types.UploadStatus, error)
}

type uploadService struct {
	log        *logger.Logger
	uploads    repos.UploadRepo
	studies    StudyService
	analyses   AnalysisService
	validation ValidationService
	dispatcher ValidationDispatcher
	ids        IDResolver
}

func NewUploadService(
	baseLog *logger.Logger,
	uploads repos.UploadRepo,
	studies StudyService,
	analyses AnalysisService,
	validation ValidationService,
	dispatcher ValidationDispatcher,
	ids IDResolver,
) UploadService {
	log := baseLog.With("service", "UploadService")
	if dispatcher == nil {
		dispatcher = NewInlineDispatcher(log, validation)
	}
	if ids == nil {
		ids = NewIDResolver()
	}
	return &uploadService{
		log:        log,
		uploads:    uploads,
		studies:    studies,
		analyses:   analyses,
		validation: validation,
		dispatcher: dispatcher,
		ids:        ids,
	}
}

func (s *uploadService) Upload(dbc dbctx.Context, studyID string, payload []byte, async bool) (*types.UploadStatus, error) {
	if err := s.studies.CheckExists(dbc, studyID); err != nil {
		return nil, err
	}
	payloadStudyID, ok, err := peekStudyID(payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.E(apierr.StudyIDMissing, "the payload is missing its studyId")
	}
	if payloadStudyID != studyID {
		return nil, apierr.E(apierr.StudyIDMismatch,
			"payload studyId '%s' does not match the url studyId '%s'", payloadStudyID, studyID)
	}

	now := time.Now().UTC()
	analysisID := peekAnalysisID(payload)
	status := &types.UploadStatus{Status: statusOK, StudyID: studyID, AnalysisID: analysisID}

	var existing *types.Upload
	if analysisID != "" {
		existing, err = s.uploads.GetByStudyAndAnalysisID(dbc, studyID, analysisID)
		if err != nil {
			return nil, fmt.Errorf("lookup upload for analysis %s: %w", analysisID, err)
		}
	}
	if existing != nil {
		if err := s.uploads.Reset(dbc, existing.ID, string(payload), now); err != nil {
			return nil, fmt.Errorf("reset upload %s: %w", existing.ID, err)
		}
		status.UploadID = existing.ID
		status.Warning = fmt.Sprintf(
			"Existing upload with uploadId '%s' and analysisId '%s' was replaced and is being revalidated",
			existing.ID, analysisID)
	} else {
		u := &types.Upload{
			ID:         s.ids.NewUploadID(),
			StudyID:    studyID,
			AnalysisID: analysisID,
			State:      types.UploadStateCreated,
			Errors:     datatypes.JSON("[]"),
			Payload:    string(payload),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.uploads.Create(dbc, u); err != nil {
			return nil, fmt.Errorf("create upload: %w", err)
		}
		status.UploadID = u.ID
	}

	if async {
		status.UploadState = types.UploadStateCreated
		if err := s.dispatcher.Dispatch(dbc.Ctx, status.UploadID); err != nil {
			// The sweeper picks the upload up later; the caller already has an id.
			s.log.Warn("Validation dispatch failed", "upload_id", status.UploadID, "error", err)
		}
	} else {
		state, err := s.validation.ValidateUpload(dbc, status.UploadID)
		if err != nil {
			return nil, err
		}
		status.UploadState = state
	}

	s.log.Info("Staged upload",
		"upload_id", status.UploadID,
		"study_id", studyID,
		"analysis_id", analysisID,
		"async", async,
		"state", status.UploadState,
		"replaced", existing != nil,
	)
	return status, nil
}

func (s *uploadService) Status(dbc dbctx.Context, studyID, uploadID string) (*types.Upload, error) {
	if err := s.studies.CheckExists(dbc, studyID); err != nil {
		return nil, err
	}
	u, err := s.uploads.GetByID(dbc, uploadID)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", uploadID, err)
	}
	if u == nil || u.StudyID != studyID {
		return nil, apierr.E(apierr.UploadIDNotFound, "the uploadId '%s' was not found in study '%s'", uploadID, studyID)
	}
	return u, nil
}

func (s *uploadService) Save(dbc dbctx.Context, studyID, uploadID string, ignoreAnalysisIDCollisions bool) (*types.UploadStatus, error) {
	u, err := s.Status(dbc, studyID, uploadID)
	if err != nil {
		return nil, err
	}
	if u.State != types.UploadStateValidated {
		return nil, apierr.E(apierr.UploadIDNotValidated,
			"uploadId '%s' is in state '%s'; only %s uploads can be saved", uploadID, u.State, types.UploadStateValidated)
	}

	analysisID, err := s.analyses.CreateWith(dbc, studyID, []byte(u.Payload), ignoreAnalysisIDCollisions,
		func(txc dbctx.Context, analysisID string) error {
			moved, err := s.uploads.MarkSaved(txc, uploadID, analysisID, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("mark upload %s saved: %w", uploadID, err)
			}
			if !moved {
				return apierr.E(apierr.UploadIDNotValidated, "uploadId '%s' changed state while saving", uploadID)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("Saved upload", "upload_id", uploadID, "study_id", studyID, "analysis_id", analysisID)
	return &types.UploadStatus{
		Status:      statusOK,
		UploadID:    uploadID,
		AnalysisID:  analysisID,
		StudyID:     studyID,
		UploadState: types.UploadStateSaved,
	}, nil
}
