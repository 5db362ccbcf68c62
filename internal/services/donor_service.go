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

type DonorService interface {
	// Save returns the id of the donor with the same business key, creating
	// it when absent. An existing donor with different data is a conflict.
	Save(dbc dbctx.Context, studyID string, donor *types.Donor) (string, error)
	Create(dbc dbctx.Context, studyID string, donor *types.Donor) (string, error)
	Read(dbc dbctx.Context, studyID, donorID string) (*types.Donor, error)
}

type donorService struct {
	log       *logger.Logger
	donorRepo repos.DonorRepo
	ids       IDResolver
	info      InfoService
}

func NewDonorService(baseLog *logger.Logger, donorRepo repos.DonorRepo, ids IDResolver, info InfoService) DonorService {
	return &donorService{
		log:       baseLog.With("service", "DonorService"),
		donorRepo: donorRepo,
		ids:       ids,
		info:      info,
	}
}

func (s *donorService) prepare(studyID string, donor *types.Donor) error {
	if donor == nil {
		return apierr.E(apierr.MalformedParameter, "donor is required")
	}
	donor.SubmitterDonorID = strings.TrimSpace(donor.SubmitterDonorID)
	if donor.SubmitterDonorID == "" {
		return apierr.E(apierr.MalformedParameter, "submitterDonorId is required")
	}
	computed := s.ids.DonorID(studyID, donor.SubmitterDonorID)
	if err := checkSuppliedID(apierr.DonorIDIsCorrupted, "donor", donor.ID, computed, donor.SubmitterDonorID); err != nil {
		return err
	}
	donor.ID = computed
	donor.StudyID = studyID
	return nil
}

func (s *donorService) Save(dbc dbctx.Context, studyID string, donor *types.Donor) (string, error) {
	if err := s.prepare(studyID, donor); err != nil {
		return "", err
	}
	existing, err := s.donorRepo.GetBySubmitterID(dbc, studyID, donor.SubmitterDonorID)
	if err != nil {
		return "", fmt.Errorf("lookup donor %s: %w", donor.SubmitterDonorID, err)
	}
	if existing == nil {
		now := time.Now().UTC()
		donor.CreatedAt, donor.UpdatedAt = now, now
		created, err := s.donorRepo.CreateIfAbsent(dbc, donor)
		if err != nil {
			return "", fmt.Errorf("create donor %s: %w", donor.SubmitterDonorID, err)
		}
		if !created {
			// lost a race; compare against the winner
			existing, err = s.donorRepo.GetBySubmitterID(dbc, studyID, donor.SubmitterDonorID)
			if err != nil {
				return "", fmt.Errorf("re-read donor %s: %w", donor.SubmitterDonorID, err)
			}
		}
	}
	if existing != nil {
		if existing.ID != donor.ID {
			return "", apierr.E(apierr.DonorIDIsCorrupted, "stored donor %q has id %q, expected %q", donor.SubmitterDonorID, existing.ID, donor.ID)
		}
		if !existing.SameData(donor) {
			return "", apierr.E(apierr.MismatchingDonorData,
				"donor %q already exists in study %q with different data (gender %q, submitted %q)",
				donor.SubmitterDonorID, studyID, existing.Gender, donor.Gender)
		}
		// a stored donor keeps the info it was first submitted with
		return existing.ID, nil
	}
	if err := s.info.Save(dbc, types.InfoDonor, donor.ID, json.RawMessage(donor.Info)); err != nil {
		return "", err
	}
	return donor.ID, nil
}

func (s *donorService) Create(dbc dbctx.Context, studyID string, donor *types.Donor) (string, error) {
	if err := s.prepare(studyID, donor); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	donor.CreatedAt, donor.UpdatedAt = now, now
	created, err := s.donorRepo.CreateIfAbsent(dbc, donor)
	if err != nil {
		return "", fmt.Errorf("create donor %s: %w", donor.SubmitterDonorID, err)
	}
	if !created {
		return "", apierr.E(apierr.DonorAlreadyExists, "donor %q already exists in study %q", donor.SubmitterDonorID, studyID)
	}
	if err := s.info.Save(dbc, types.InfoDonor, donor.ID, json.RawMessage(donor.Info)); err != nil {
		return "", err
	}
	return donor.ID, nil
}

func (s *donorService) Read(dbc dbctx.Context, studyID, donorID string) (*types.Donor, error) {
	donor, err := s.donorRepo.GetByID(dbc, donorID)
	if err != nil {
		return nil, fmt.Errorf("read donor %s: %w", donorID, err)
	}
	if donor == nil || (studyID != "" && donor.StudyID != studyID) {
		return nil, apierr.E(apierr.DonorDoesNotExist, "donor %q does not exist in study %q", donorID, studyID)
	}
	if donor.Info, err = s.info.Read(dbc, types.InfoDonor, donor.ID); err != nil {
		return nil, err
	}
	return donor, nil
}
