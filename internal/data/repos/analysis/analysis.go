package analysis

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type AnalysisRepo interface {
	Create(dbc dbctx.Context, a *types.Analysis) error
	GetByID(dbc dbctx.Context, analysisID string) (*types.Analysis, error)
	GetByIDs(dbc dbctx.Context, analysisIDs []string) ([]*types.Analysis, error)
	Exists(dbc dbctx.Context, analysisID string) (bool, error)
	ListByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState) ([]*types.Analysis, error)
	PageByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState, limit, offset int) ([]*types.Analysis, int64, error)
	// UpdateState moves the analysis from one state to another; it reports
	// false when the row was no longer in the expected state.
	UpdateState(dbc dbctx.Context, analysisID string, from, to types.AnalysisState, at time.Time) (bool, error)
	UpdateSchema(dbc dbctx.Context, analysisID string, schemaID uint, at time.Time) error
	Touch(dbc dbctx.Context, analysisID string, at time.Time) error
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	repoLog := baseLog.With("repo", "AnalysisRepo")
	return &analysisRepo{db: db, log: repoLog}
}

func (r *analysisRepo) Create(dbc dbctx.Context, a *types.Analysis) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(a).Error
}

func (r *analysisRepo) GetByID(dbc dbctx.Context, analysisID string) (*types.Analysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Analysis
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", analysisID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *analysisRepo) GetByIDs(dbc dbctx.Context, analysisIDs []string) ([]*types.Analysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Analysis
	if len(analysisIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", analysisIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *analysisRepo) Exists(dbc dbctx.Context, analysisID string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Analysis{}).
		Where("id = ?", analysisID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *analysisRepo) ListByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState) ([]*types.Analysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("study_id = ?", studyID)
	if len(states) > 0 {
		q = q.Where("analysis_state IN ?", states)
	}
	var results []*types.Analysis
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *analysisRepo) PageByStudy(dbc dbctx.Context, studyID string, states []types.AnalysisState, limit, offset int) ([]*types.Analysis, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Analysis{}).Where("study_id = ?", studyID)
	if len(states) > 0 {
		q = q.Where("analysis_state IN ?", states)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Analysis
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *analysisRepo) UpdateState(dbc dbctx.Context, analysisID string, from, to types.AnalysisState, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Analysis{}).
		Where("id = ? AND analysis_state = ?", analysisID, from).
		Updates(map[string]interface{}{
			"analysis_state": to,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *analysisRepo) UpdateSchema(dbc dbctx.Context, analysisID string, schemaID uint, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Analysis{}).
		Where("id = ?", analysisID).
		Updates(map[string]interface{}{
			"analysis_schema_id": schemaID,
			"updated_at":         at,
		}).Error
}

func (r *analysisRepo) Touch(dbc dbctx.Context, analysisID string, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Analysis{}).
		Where("id = ?", analysisID).
		Update("updated_at", at).Error
}
