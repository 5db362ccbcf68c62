package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type SpecimenService interface {
	Save(dbc dbctx.Context, studyID, donorID string, specimen *types.Specimen) (string, error)
	Create(dbc dbctx.Context, studyID, donorID string, specimen *types.Specimen) (string, error)
	Read(dbc dbctx.Context, studyID, specimenID string) (*types.Specimen, error)
}

type specimenService struct {
	log          *logger.Logger
	specimenRepo repos.SpecimenRepo
	ids          IDResolver
	info         InfoService
}

func NewSpecimenService(baseLog *logger.Logger, specimenRepo repos.SpecimenRepo, ids IDResolver, info InfoService) SpecimenService {
	return &specimenService{
		log:          baseLog.With("service", "SpecimenService"),
		specimenRepo: specimenRepo,
		ids:          ids,
		info:         info,
	}
}

func (s *specimenService) prepare(studyID, donorID string, specimen *types.Specimen) error {
	if specimen == nil {
		return apierr.E(apierr.MalformedParameter, "specimen is required")
	}
	specimen.SubmitterSpecimenID = strings.TrimSpace(specimen.SubmitterSpecimenID)
	if specimen.SubmitterSpecimenID == "" {
		return apierr.E(apierr.MalformedParameter, "submitterSpecimenId is required")
	}
	computed := s.ids.SpecimenID(studyID, specimen.SubmitterSpecimenID)
	if err := checkSuppliedID(apierr.SpecimenIDIsCorrupted, "specimen", specimen.ID, computed, specimen.SubmitterSpecimenID); err != nil {
		return err
	}
	if specimen.DonorID != "" && specimen.DonorID != donorID {
		return apierr.E(apierr.SpecimenToDonorIDMismatch,
			"specimen %q names donor %q but belongs to donor %q", specimen.SubmitterSpecimenID, specimen.DonorID, donorID)
	}
	specimen.ID = computed
	specimen.DonorID = donorID
	specimen.StudyID = studyID
	return nil
}

func (s *specimenService) Save(dbc dbctx.Context, studyID, donorID string, specimen *types.Specimen) (string, error) {
	if err := s.prepare(studyID, donorID, specimen); err != nil {
		return "", err
	}
	existing, err := s.specimenRepo.GetBySubmitterID(dbc, studyID, specimen.SubmitterSpecimenID)
	if err != nil {
		return "", fmt.Errorf("lookup specimen %s: %w", specimen.SubmitterSpecimenID, err)
	}
	if existing == nil {
		now := time.Now().UTC()
		specimen.CreatedAt, specimen.UpdatedAt = now, now
		created, err := s.specimenRepo.CreateIfAbsent(dbc, specimen)
		if err != nil {
			return "", fmt.Errorf("create specimen %s: %w", specimen.SubmitterSpecimenID, err)
		}
		if !created {
			existing, err = s.specimenRepo.GetBySubmitterID(dbc, studyID, specimen.SubmitterSpecimenID)
			if err != nil {
				return "", fmt.Errorf("re-read specimen %s: %w", specimen.SubmitterSpecimenID, err)
			}
		}
	}
	if existing != nil {
		if existing.ID != specimen.ID {
			return "", apierr.E(apierr.SpecimenIDIsCorrupted, "stored specimen %q has id %q, expected %q", specimen.SubmitterSpecimenID, existing.ID, specimen.ID)
		}
		if existing.DonorID != donorID {
			return "", apierr.E(apierr.SpecimenToDonorIDMismatch,
				"specimen %q belongs to donor %q, not %q", specimen.SubmitterSpecimenID, existing.DonorID, donorID)
		}
		if !existing.SameData(specimen) {
			return "", apierr.E(apierr.MismatchingSpecimenData,
				"specimen %q already exists in study %q with different data", specimen.SubmitterSpecimenID, studyID)
		}
		// a stored specimen keeps the info it was first submitted with
		return existing.ID, nil
	}
	if err := s.info.Save(dbc, types.InfoSpecimen, specimen.ID, json.RawMessage(specimen.Info)); err != nil {
		return "", err
	}
	return specimen.ID, nil
}

func (s *specimenService) Create(dbc dbctx.Context, studyID, donorID string, specimen *types.Specimen) (string, error) {
	if err := s.prepare(studyID, donorID, specimen); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	specimen.CreatedAt, specimen.UpdatedAt = now, now
	created, err := s.specimenRepo.CreateIfAbsent(dbc, specimen)
	if err != nil {
		return "", fmt.Errorf("create specimen %s: %w", specimen.SubmitterSpecimenID, err)
	}
	if !created {
		return "", apierr.E(apierr.SpecimenAlreadyExists, "specimen %q already exists in study %q", specimen.SubmitterSpecimenID, studyID)
	}
	if err := s.info.Save(dbc, types.InfoSpecimen, specimen.ID, json.RawMessage(specimen.Info)); err != nil {
		return "", err
	}
	return specimen.ID, nil
}

func (s *specimenService) Read(dbc dbctx.Context, studyID, specimenID string) (*types.Specimen, error) {
	specimen, err := s.specimenRepo.GetByID(dbc, specimenID)
	if err != nil {
		return nil, fmt.Errorf("read specimen %s: %w", specimenID, err)
	}
	if specimen == nil || (studyID != "" && specimen.StudyID != studyID) {
		return nil, apierr.E(apierr.SpecimenDoesNotExist, "specimen %q does not exist in study %q", specimenID, studyID)
	}
	if specimen.Info, err = s.info.Read(dbc, types.InfoSpecimen, specimen.ID); err != nil {
		return nil, err
	}
	return specimen, nil
}
