package metadata

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type FileRepo interface {
	// Upsert writes the file, updating the mutable columns in place when the
	// object id already exists.
	Upsert(dbc dbctx.Context, file *types.File) error
	Update(dbc dbctx.Context, file *types.File) error
	GetByID(dbc dbctx.Context, objectID string) (*types.File, error)
	ListByAnalysisID(dbc dbctx.Context, analysisID string) ([]*types.File, error)
	ListAnalysisIDsByObjectIDs(dbc dbctx.Context, studyID string, objectIDs []string) ([]string, error)
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	repoLog := baseLog.With("repo", "FileRepo")
	return &fileRepo{db: db, log: repoLog}
}

func (r *fileRepo) Upsert(dbc dbctx.Context, file *types.File) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if file == nil || file.ObjectID == "" {
		return nil
	}
	file.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"file_size",
				"file_type",
				"file_md5sum",
				"file_access",
				"data_type",
				"updated_at",
			}),
		}).
		Create(file).Error
}

func (r *fileRepo) Update(dbc dbctx.Context, file *types.File) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	file.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.File{}).
		Where("id = ?", file.ObjectID).
		Updates(map[string]interface{}{
			"file_size":   file.FileSize,
			"file_md5sum": file.FileMD5Sum,
			"file_access": file.FileAccess,
			"data_type":   file.DataType,
			"updated_at":  file.UpdatedAt,
		}).Error
}

func (r *fileRepo) GetByID(dbc dbctx.Context, objectID string) (*types.File, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.File
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", objectID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fileRepo) ListByAnalysisID(dbc dbctx.Context, analysisID string) ([]*types.File, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.File
	if err := transaction.WithContext(dbc.Ctx).
		Where("analysis_id = ?", analysisID).
		Order("file_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) ListAnalysisIDsByObjectIDs(dbc dbctx.Context, studyID string, objectIDs []string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []string
	if len(objectIDs) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.File{}).
		Where("study_id = ? AND id IN ?", studyID, objectIDs).
		Distinct("analysis_id").
		Pluck("analysis_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
