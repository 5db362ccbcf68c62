package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/data/db"
	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type StudyService interface {
	Create(dbc dbctx.Context, study *types.Study) error
	Read(dbc dbctx.Context, studyID string) (*types.Study, error)
	ReadWithChildren(dbc dbctx.Context, studyID string) (*types.StudyWithDonors, error)
	ListIDs(dbc dbctx.Context) ([]string, error)
	// CheckExists fails with STUDY_ID_DOES_NOT_EXIST.
	CheckExists(dbc dbctx.Context, studyID string) error
}

type studyService struct {
	log          *logger.Logger
	studyRepo    repos.StudyRepo
	donorRepo    repos.DonorRepo
	specimenRepo repos.SpecimenRepo
	sampleRepo   repos.SampleRepo
	info         InfoService
}

func NewStudyService(
	baseLog *logger.Logger,
	studyRepo repos.StudyRepo,
	donorRepo repos.DonorRepo,
	specimenRepo repos.SpecimenRepo,
	sampleRepo repos.SampleRepo,
	info InfoService,
) StudyService {
	return &studyService{
		log:          baseLog.With("service", "StudyService"),
		studyRepo:    studyRepo,
		donorRepo:    donorRepo,
		specimenRepo: specimenRepo,
		sampleRepo:   sampleRepo,
		info:         info,
	}
}

func (s *studyService) Create(dbc dbctx.Context, study *types.Study) error {
	study.ID = strings.TrimSpace(study.ID)
	if study.ID == "" {
		return apierr.E(apierr.StudyIDMissing, "studyId is required")
	}
	exists, err := s.studyRepo.Exists(dbc, study.ID)
	if err != nil {
		return fmt.Errorf("check study %s: %w", study.ID, err)
	}
	if exists {
		return apierr.E(apierr.StudyAlreadyExists, "study %q already exists", study.ID)
	}
	now := time.Now().UTC()
	study.CreatedAt = now
	study.UpdatedAt = now
	if err := s.studyRepo.Create(dbc, study); err != nil {
		if db.IsUniqueViolation(err) {
			return apierr.E(apierr.StudyAlreadyExists, "study %q already exists", study.ID)
		}
		return fmt.Errorf("create study %s: %w", study.ID, err)
	}
	if err := s.info.Save(dbc, types.InfoStudy, study.ID, json.RawMessage(study.Info)); err != nil {
		return err
	}
	s.log.Info("Created study", "study_id", study.ID)
	return nil
}

func (s *studyService) Read(dbc dbctx.Context, studyID string) (*types.Study, error) {
	study, err := s.studyRepo.GetByID(dbc, studyID)
	if err != nil {
		return nil, fmt.Errorf("read study %s: %w", studyID, err)
	}
	if study == nil {
		return nil, apierr.E(apierr.StudyIDDoesNotExist, "study %q does not exist", studyID)
	}
	info, err := s.info.Read(dbc, types.InfoStudy, studyID)
	if err != nil {
		return nil, err
	}
	study.Info = info
	return study, nil
}

func (s *studyService) ReadWithChildren(dbc dbctx.Context, studyID string) (*types.StudyWithDonors, error) {
	study, err := s.Read(dbc, studyID)
	if err != nil {
		return nil, err
	}
	donors, err := s.donorRepo.ListByStudy(dbc, studyID)
	if err != nil {
		return nil, fmt.Errorf("list donors of %s: %w", studyID, err)
	}
	donorIDs := make([]string, 0, len(donors))
	for _, d := range donors {
		donorIDs = append(donorIDs, d.ID)
	}
	specimens, err := s.specimenRepo.ListByDonorIDs(dbc, donorIDs)
	if err != nil {
		return nil, fmt.Errorf("list specimens of %s: %w", studyID, err)
	}
	specimenIDs := make([]string, 0, len(specimens))
	for _, sp := range specimens {
		specimenIDs = append(specimenIDs, sp.ID)
	}
	samples, err := s.sampleRepo.ListBySpecimenIDs(dbc, specimenIDs)
	if err != nil {
		return nil, fmt.Errorf("list samples of %s: %w", studyID, err)
	}

	samplesBySpecimen := map[string][]*types.Sample{}
	for _, sa := range samples {
		samplesBySpecimen[sa.SpecimenID] = append(samplesBySpecimen[sa.SpecimenID], sa)
	}
	specimensByDonor := map[string][]*types.SpecimenWithSamples{}
	for _, sp := range specimens {
		specimensByDonor[sp.DonorID] = append(specimensByDonor[sp.DonorID], &types.SpecimenWithSamples{
			Specimen: *sp,
			Samples:  nonNilSamples(samplesBySpecimen[sp.ID]),
		})
	}
	out := &types.StudyWithDonors{Study: *study, Donors: make([]*types.DonorWithSpecimens, 0, len(donors))}
	for _, d := range donors {
		specs := specimensByDonor[d.ID]
		if specs == nil {
			specs = []*types.SpecimenWithSamples{}
		}
		out.Donors = append(out.Donors, &types.DonorWithSpecimens{Donor: *d, Specimens: specs})
	}
	return out, nil
}

func (s *studyService) ListIDs(dbc dbctx.Context) ([]string, error) {
	ids, err := s.studyRepo.ListIDs(dbc)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	return ids, nil
}

func (s *studyService) CheckExists(dbc dbctx.Context, studyID string) error {
	ok, err := s.studyRepo.Exists(dbc, studyID)
	if err != nil {
		return fmt.Errorf("check study %s: %w", studyID, err)
	}
	if !ok {
		return apierr.E(apierr.StudyIDDoesNotExist, "study %q does not exist", studyID)
	}
	return nil
}

func nonNilSamples(in []*types.Sample) []*types.Sample {
	if in == nil {
		return []*types.Sample{}
	}
	return in
}
