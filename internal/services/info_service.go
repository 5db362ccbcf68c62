package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// InfoService stores the free-form info blob of any entity.
type InfoService interface {
	Save(dbc dbctx.Context, kind types.InfoKind, id string, info json.RawMessage) error
	Read(dbc dbctx.Context, kind types.InfoKind, id string) (datatypes.JSON, error)
	ReadMany(dbc dbctx.Context, kind types.InfoKind, ids []string) (map[string]datatypes.JSON, error)
}

type infoService struct {
	log      *logger.Logger
	infoRepo repos.InfoRepo
}

func NewInfoService(baseLog *logger.Logger, infoRepo repos.InfoRepo) InfoService {
	return &infoService{log: baseLog.With("service", "InfoService"), infoRepo: infoRepo}
}

// Save ignores empty and null blobs; anything else must be a JSON object.
func (s *infoService) Save(dbc dbctx.Context, kind types.InfoKind, id string, info json.RawMessage) error {
	trimmed := bytes.TrimSpace(info)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return apierr.E(apierr.MalformedParameter, "%s %s info must be a JSON object", kind, id)
	}
	if err := s.infoRepo.Upsert(dbc, kind, id, datatypes.JSON(trimmed)); err != nil {
		return fmt.Errorf("save %s info %s: %w", kind, id, err)
	}
	return nil
}

func (s *infoService) Read(dbc dbctx.Context, kind types.InfoKind, id string) (datatypes.JSON, error) {
	info, err := s.infoRepo.Get(dbc, kind, id)
	if err != nil {
		return nil, fmt.Errorf("read %s info %s: %w", kind, id, err)
	}
	return info, nil
}

func (s *infoService) ReadMany(dbc dbctx.Context, kind types.InfoKind, ids []string) (map[string]datatypes.JSON, error) {
	out, err := s.infoRepo.GetMany(dbc, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("read %s info: %w", kind, err)
	}
	return out, nil
}
