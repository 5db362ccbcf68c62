package metadata

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// InfoRepo is the single store behind every entity's free-form info blob.
type InfoRepo interface {
	Upsert(dbc dbctx.Context, kind types.InfoKind, id string, info datatypes.JSON) error
	Get(dbc dbctx.Context, kind types.InfoKind, id string) (datatypes.JSON, error)
	GetMany(dbc dbctx.Context, kind types.InfoKind, ids []string) (map[string]datatypes.JSON, error)
}

type infoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInfoRepo(db *gorm.DB, baseLog *logger.Logger) InfoRepo {
	repoLog := baseLog.With("repo", "InfoRepo")
	return &infoRepo{db: db, log: repoLog}
}

func (r *infoRepo) Upsert(dbc dbctx.Context, kind types.InfoKind, id string, info datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	now := time.Now().UTC()
	row := &types.Info{ID: id, IDType: kind, Info: info, CreatedAt: now, UpdatedAt: now}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "id_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"info", "updated_at"}),
		}).
		Create(row).Error
}

func (r *infoRepo) Get(dbc dbctx.Context, kind types.InfoKind, id string) (datatypes.JSON, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Info
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND id_type = ?", id, kind).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Info, nil
}

func (r *infoRepo) GetMany(dbc dbctx.Context, kind types.InfoKind, ids []string) (map[string]datatypes.JSON, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]datatypes.JSON{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*types.Info
	if err := transaction.WithContext(dbc.Ctx).
		Where("id_type = ? AND id IN ?", kind, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Info
	}
	return out, nil
}
