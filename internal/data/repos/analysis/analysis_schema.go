package analysis

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// SchemaFilter narrows a registry listing. Names and Versions intersect.
type SchemaFilter struct {
	Names    []string
	Versions []int
	Offset   int
	Limit    int
	// SortColumn is a validated column name; Desc flips the order.
	SortColumn string
	Desc       bool
}

type AnalysisSchemaRepo interface {
	Create(dbc dbctx.Context, schema *types.AnalysisSchema) error
	CountByName(dbc dbctx.Context, name string) (int64, error)
	GetByID(dbc dbctx.Context, id uint) (*types.AnalysisSchema, error)
	GetByIDs(dbc dbctx.Context, ids []uint) (map[uint]*types.AnalysisSchema, error)
	GetByNameVersion(dbc dbctx.Context, name string, version int) (*types.AnalysisSchema, error)
	GetLatest(dbc dbctx.Context, name string) (*types.AnalysisSchema, error)
	ListNames(dbc dbctx.Context) ([]string, error)
	Page(dbc dbctx.Context, filter SchemaFilter) ([]*types.AnalysisSchema, int64, error)
}

type analysisSchemaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisSchemaRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisSchemaRepo {
	repoLog := baseLog.With("repo", "AnalysisSchemaRepo")
	return &analysisSchemaRepo{db: db, log: repoLog}
}

func (r *analysisSchemaRepo) Create(dbc dbctx.Context, schema *types.AnalysisSchema) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(schema).Error
}

func (r *analysisSchemaRepo) CountByName(dbc dbctx.Context, name string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AnalysisSchema{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *analysisSchemaRepo) GetByID(dbc dbctx.Context, id uint) (*types.AnalysisSchema, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AnalysisSchema
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *analysisSchemaRepo) GetByIDs(dbc dbctx.Context, ids []uint) (map[uint]*types.AnalysisSchema, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[uint]*types.AnalysisSchema{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*types.AnalysisSchema
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *analysisSchemaRepo) GetByNameVersion(dbc dbctx.Context, name string, version int) (*types.AnalysisSchema, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AnalysisSchema
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ? AND version = ?", name, version).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *analysisSchemaRepo) GetLatest(dbc dbctx.Context, name string) (*types.AnalysisSchema, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AnalysisSchema
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Order("version DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *analysisSchemaRepo) ListNames(dbc dbctx.Context) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var names []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AnalysisSchema{}).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *analysisSchemaRepo) Page(dbc dbctx.Context, filter SchemaFilter) ([]*types.AnalysisSchema, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.AnalysisSchema{})
	if len(filter.Names) > 0 {
		q = q.Where("name IN ?", filter.Names)
	}
	if len(filter.Versions) > 0 {
		q = q.Where("version IN ?", filter.Versions)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col := filter.SortColumn
	if col == "" {
		col = "version"
	}
	dir := " ASC"
	if filter.Desc {
		dir = " DESC"
	}
	var results []*types.AnalysisSchema
	if err := q.Order(col + dir).Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
