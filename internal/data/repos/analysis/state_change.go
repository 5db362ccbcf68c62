package analysis

import (
	"gorm.io/gorm"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type StateChangeRepo interface {
	Append(dbc dbctx.Context, change *types.AnalysisStateChange) error
	ListByAnalysisID(dbc dbctx.Context, analysisID string) ([]types.AnalysisStateChange, error)
	ListByAnalysisIDs(dbc dbctx.Context, analysisIDs []string) (map[string][]types.AnalysisStateChange, error)
}

type stateChangeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStateChangeRepo(db *gorm.DB, baseLog *logger.Logger) StateChangeRepo {
	repoLog := baseLog.With("repo", "StateChangeRepo")
	return &stateChangeRepo{db: db, log: repoLog}
}

func (r *stateChangeRepo) Append(dbc dbctx.Context, change *types.AnalysisStateChange) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(change).Error
}

func (r *stateChangeRepo) ListByAnalysisID(dbc dbctx.Context, analysisID string) ([]types.AnalysisStateChange, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []types.AnalysisStateChange
	if err := transaction.WithContext(dbc.Ctx).
		Where("analysis_id = ?", analysisID).
		Order("updated_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *stateChangeRepo) ListByAnalysisIDs(dbc dbctx.Context, analysisIDs []string) (map[string][]types.AnalysisStateChange, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string][]types.AnalysisStateChange{}
	if len(analysisIDs) == 0 {
		return out, nil
	}
	var rows []types.AnalysisStateChange
	if err := transaction.WithContext(dbc.Ctx).
		Where("analysis_id IN ?", analysisIDs).
		Order("updated_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AnalysisID] = append(out[row.AnalysisID], row)
	}
	return out, nil
}
