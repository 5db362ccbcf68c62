package analysis

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type SampleSetRepo interface {
	Create(dbc dbctx.Context, rows []*types.SampleSet) error
	ListSampleIDs(dbc dbctx.Context, analysisID string) ([]string, error)
	ListBySampleIDs(dbc dbctx.Context, sampleIDs []string) ([]*types.SampleSet, error)
}

type sampleSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleSetRepo(db *gorm.DB, baseLog *logger.Logger) SampleSetRepo {
	repoLog := baseLog.With("repo", "SampleSetRepo")
	return &sampleSetRepo{db: db, log: repoLog}
}

func (r *sampleSetRepo) Create(dbc dbctx.Context, rows []*types.SampleSet) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *sampleSetRepo) ListSampleIDs(dbc dbctx.Context, analysisID string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.SampleSet{}).
		Where("analysis_id = ?", analysisID).
		Order("sample_id ASC").
		Pluck("sample_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *sampleSetRepo) ListBySampleIDs(dbc dbctx.Context, sampleIDs []string) ([]*types.SampleSet, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SampleSet
	if len(sampleIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("sample_id IN ?", sampleIDs).
		Order("analysis_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
