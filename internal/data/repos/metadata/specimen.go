package metadata

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type SpecimenRepo interface {
	CreateIfAbsent(dbc dbctx.Context, specimen *types.Specimen) (created bool, err error)
	GetByID(dbc dbctx.Context, specimenID string) (*types.Specimen, error)
	GetByIDs(dbc dbctx.Context, specimenIDs []string) ([]*types.Specimen, error)
	GetBySubmitterID(dbc dbctx.Context, studyID, submitterSpecimenID string) (*types.Specimen, error)
	ListByDonorIDs(dbc dbctx.Context, donorIDs []string) ([]*types.Specimen, error)
}

type specimenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpecimenRepo(db *gorm.DB, baseLog *logger.Logger) SpecimenRepo {
	repoLog := baseLog.With("repo", "SpecimenRepo")
	return &specimenRepo{db: db, log: repoLog}
}

func (r *specimenRepo) CreateIfAbsent(dbc dbctx.Context, specimen *types.Specimen) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(specimen)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *specimenRepo) GetByID(dbc dbctx.Context, specimenID string) (*types.Specimen, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Specimen
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", specimenID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *specimenRepo) GetByIDs(dbc dbctx.Context, specimenIDs []string) ([]*types.Specimen, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Specimen
	if len(specimenIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", specimenIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *specimenRepo) GetBySubmitterID(dbc dbctx.Context, studyID, submitterSpecimenID string) (*types.Specimen, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Specimen
	err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ? AND submitter_specimen_id = ?", studyID, submitterSpecimenID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *specimenRepo) ListByDonorIDs(dbc dbctx.Context, donorIDs []string) ([]*types.Specimen, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Specimen
	if len(donorIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("donor_id IN ?", donorIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
