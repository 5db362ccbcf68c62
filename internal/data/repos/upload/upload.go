package upload

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type UploadRepo interface {
	Create(dbc dbctx.Context, u *types.Upload) error
	GetByID(dbc dbctx.Context, uploadID string) (*types.Upload, error)
	GetByStudyAndAnalysisID(dbc dbctx.Context, studyID, analysisID string) (*types.Upload, error)
	// ExistsForAnalysisIDOutsideStudy reports whether another study already
	// staged a submission under analysisID.
	ExistsForAnalysisIDOutsideStudy(dbc dbctx.Context, studyID, analysisID string) (bool, error)
	// Reset replaces the payload, moves the upload back to CREATED and bumps
	// its generation.
	Reset(dbc dbctx.Context, uploadID, payload string, at time.Time) error
	// FinishValidation only moves uploads still in CREATED at the generation
	// that was validated.
	FinishValidation(dbc dbctx.Context, uploadID string, generation int, state types.UploadState, errs datatypes.JSON, at time.Time) (bool, error)
	MarkSaved(dbc dbctx.Context, uploadID, analysisID string, at time.Time) (bool, error)
	ListStaleCreated(dbc dbctx.Context, olderThan time.Time, limit int) ([]*types.Upload, error)
}

type uploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	repoLog := baseLog.With("repo", "UploadRepo")
	return &uploadRepo{db: db, log: repoLog}
}

func (r *uploadRepo) Create(dbc dbctx.Context, u *types.Upload) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(u).Error
}

func (r *uploadRepo) GetByID(dbc dbctx.Context, uploadID string) (*types.Upload, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Upload
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", uploadID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *uploadRepo) GetByStudyAndAnalysisID(dbc dbctx.Context, studyID, analysisID string) (*types.Upload, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Upload
	err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ? AND analysis_id = ?", studyID, analysisID).
		Order("updated_at DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *uploadRepo) ExistsForAnalysisIDOutsideStudy(dbc dbctx.Context, studyID, analysisID string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Upload{}).
		Where("analysis_id = ? AND study_id <> ?", analysisID, studyID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *uploadRepo) Reset(dbc dbctx.Context, uploadID, payload string, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Upload{}).
		Where("id = ?", uploadID).
		Updates(map[string]interface{}{
			"state":      types.UploadStateCreated,
			"errors":     datatypes.JSON("[]"),
			"payload":    payload,
			"generation": gorm.Expr("generation + 1"),
			"updated_at": at,
		}).Error
}

func (r *uploadRepo) FinishValidation(dbc dbctx.Context, uploadID string, generation int, state types.UploadState, errs datatypes.JSON, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(errs) == 0 {
		errs = datatypes.JSON("[]")
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Upload{}).
		Where("id = ? AND state = ? AND generation = ?", uploadID, types.UploadStateCreated, generation).
		Updates(map[string]interface{}{
			"state":      state,
			"errors":     errs,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *uploadRepo) MarkSaved(dbc dbctx.Context, uploadID, analysisID string, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Upload{}).
		Where("id = ? AND state = ?", uploadID, types.UploadStateValidated).
		Updates(map[string]interface{}{
			"state":       types.UploadStateSaved,
			"analysis_id": analysisID,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *uploadRepo) ListStaleCreated(dbc dbctx.Context, olderThan time.Time, limit int) ([]*types.Upload, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.Upload
	if err := transaction.WithContext(dbc.Ctx).
		Where("state = ? AND updated_at < ?", types.UploadStateCreated, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
