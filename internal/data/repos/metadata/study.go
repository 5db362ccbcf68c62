package metadata

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type StudyRepo interface {
	Create(dbc dbctx.Context, study *types.Study) error
	GetByID(dbc dbctx.Context, studyID string) (*types.Study, error)
	Exists(dbc dbctx.Context, studyID string) (bool, error)
	ListIDs(dbc dbctx.Context) ([]string, error)
}

type studyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	repoLog := baseLog.With("repo", "StudyRepo")
	return &studyRepo{db: db, log: repoLog}
}

func (r *studyRepo) Create(dbc dbctx.Context, study *types.Study) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(study).Error
}

func (r *studyRepo) GetByID(dbc dbctx.Context, studyID string) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Study
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", studyID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *studyRepo) Exists(dbc dbctx.Context, studyID string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("id = ?", studyID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studyRepo) ListIDs(dbc dbctx.Context) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
