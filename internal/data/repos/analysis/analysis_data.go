package analysis

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type AnalysisDataRepo interface {
	Upsert(dbc dbctx.Context, data *types.AnalysisData) error
	GetByAnalysisID(dbc dbctx.Context, analysisID string) (*types.AnalysisData, error)
	GetByAnalysisIDs(dbc dbctx.Context, analysisIDs []string) (map[string]*types.AnalysisData, error)
}

type analysisDataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisDataRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisDataRepo {
	repoLog := baseLog.With("repo", "AnalysisDataRepo")
	return &analysisDataRepo{db: db, log: repoLog}
}

func (r *analysisDataRepo) Upsert(dbc dbctx.Context, data *types.AnalysisData) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	data.UpdatedAt = now
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "analysis_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(data).Error
}

func (r *analysisDataRepo) GetByAnalysisID(dbc dbctx.Context, analysisID string) (*types.AnalysisData, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AnalysisData
	err := transaction.WithContext(dbc.Ctx).Where("analysis_id = ?", analysisID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *analysisDataRepo) GetByAnalysisIDs(dbc dbctx.Context, analysisIDs []string) (map[string]*types.AnalysisData, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]*types.AnalysisData{}
	if len(analysisIDs) == 0 {
		return out, nil
	}
	var rows []*types.AnalysisData
	if err := transaction.WithContext(dbc.Ctx).
		Where("analysis_id IN ?", analysisIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AnalysisID] = row
	}
	return out, nil
}
