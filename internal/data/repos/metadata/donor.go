package metadata

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type DonorRepo interface {
	// CreateIfAbsent inserts the donor unless its id or business key is
	// already taken; created reports whether this call wrote the row.
	CreateIfAbsent(dbc dbctx.Context, donor *types.Donor) (created bool, err error)
	GetByID(dbc dbctx.Context, donorID string) (*types.Donor, error)
	GetByIDs(dbc dbctx.Context, donorIDs []string) ([]*types.Donor, error)
	GetBySubmitterID(dbc dbctx.Context, studyID, submitterDonorID string) (*types.Donor, error)
	ListByStudy(dbc dbctx.Context, studyID string) ([]*types.Donor, error)
}

type donorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDonorRepo(db *gorm.DB, baseLog *logger.Logger) DonorRepo {
	repoLog := baseLog.With("repo", "DonorRepo")
	return &donorRepo{db: db, log: repoLog}
}

func (r *donorRepo) CreateIfAbsent(dbc dbctx.Context, donor *types.Donor) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(donor)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *donorRepo) GetByID(dbc dbctx.Context, donorID string) (*types.Donor, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Donor
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", donorID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *donorRepo) GetByIDs(dbc dbctx.Context, donorIDs []string) ([]*types.Donor, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Donor
	if len(donorIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", donorIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *donorRepo) GetBySubmitterID(dbc dbctx.Context, studyID, submitterDonorID string) (*types.Donor, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Donor
	err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ? AND submitter_donor_id = ?", studyID, submitterDonorID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *donorRepo) ListByStudy(dbc dbctx.Context, studyID string) ([]*types.Donor, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Donor
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ?", studyID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
