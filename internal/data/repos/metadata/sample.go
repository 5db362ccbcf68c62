package metadata

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type SampleRepo interface {
	CreateIfAbsent(dbc dbctx.Context, sample *types.Sample) (created bool, err error)
	GetByID(dbc dbctx.Context, sampleID string) (*types.Sample, error)
	GetByIDs(dbc dbctx.Context, sampleIDs []string) ([]*types.Sample, error)
	GetBySubmitterID(dbc dbctx.Context, studyID, submitterSampleID string) (*types.Sample, error)
	ListBySpecimenIDs(dbc dbctx.Context, specimenIDs []string) ([]*types.Sample, error)
}

type sampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRepo(db *gorm.DB, baseLog *logger.Logger) SampleRepo {
	repoLog := baseLog.With("repo", "SampleRepo")
	return &sampleRepo{db: db, log: repoLog}
}

func (r *sampleRepo) CreateIfAbsent(dbc dbctx.Context, sample *types.Sample) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sample)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sampleRepo) GetByID(dbc dbctx.Context, sampleID string) (*types.Sample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Sample
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", sampleID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sampleRepo) GetByIDs(dbc dbctx.Context, sampleIDs []string) ([]*types.Sample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Sample
	if len(sampleIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", sampleIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sampleRepo) GetBySubmitterID(dbc dbctx.Context, studyID, submitterSampleID string) (*types.Sample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Sample
	err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ? AND submitter_sample_id = ?", studyID, submitterSampleID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sampleRepo) ListBySpecimenIDs(dbc dbctx.Context, specimenIDs []string) ([]*types.Sample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Sample
	if len(specimenIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("specimen_id IN ?", specimenIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
