package services

import (
	"fmt"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// CompositeEntityService materializes the donor -> specimen -> sample chain
// of a submission and reassembles it for reads.
type CompositeEntityService interface {
	Save(dbc dbctx.Context, studyID string, ce *types.CompositeEntity) (string, error)
	Read(dbc dbctx.Context, sampleID string) (*types.CompositeEntity, error)
	ReadMany(dbc dbctx.Context, sampleIDs []string) ([]*types.CompositeEntity, error)
}

type compositeEntityService struct {
	log          *logger.Logger
	donors       DonorService
	specimens    SpecimenService
	samples      SampleService
	donorRepo    repos.DonorRepo
	specimenRepo repos.SpecimenRepo
	sampleRepo   repos.SampleRepo
	info         InfoService
}

func NewCompositeEntityService(
	baseLog *logger.Logger,
	donors DonorService,
	specimens SpecimenService,
	samples SampleService,
	donorRepo repos.DonorRepo,
	specimenRepo repos.SpecimenRepo,
	sampleRepo repos.SampleRepo,
	info InfoService,
) CompositeEntityService {
	return &compositeEntityService{
		log:          baseLog.With("service", "CompositeEntityService"),
		donors:       donors,
		specimens:    specimens,
		samples:      samples,
		donorRepo:    donorRepo,
		specimenRepo: specimenRepo,
		sampleRepo:   sampleRepo,
		info:         info,
	}
}

func (s *compositeEntityService) Save(dbc dbctx.Context, studyID string, ce *types.CompositeEntity) (string, error) {
	if ce == nil {
		return "", apierr.E(apierr.MalformedParameter, "sample is required")
	}
	if ce.Donor == nil {
		return "", apierr.E(apierr.MalformedParameter, "sample %q has no donor", ce.SubmitterSampleID)
	}
	if ce.Specimen == nil {
		return "", apierr.E(apierr.MalformedParameter, "sample %q has no specimen", ce.SubmitterSampleID)
	}
	donorID, err := s.donors.Save(dbc, studyID, ce.Donor)
	if err != nil {
		return "", err
	}
	specimenID, err := s.specimens.Save(dbc, studyID, donorID, ce.Specimen)
	if err != nil {
		return "", err
	}
	sampleID, err := s.samples.Save(dbc, studyID, specimenID, &ce.Sample)
	if err != nil {
		return "", err
	}
	return sampleID, nil
}

func (s *compositeEntityService) Read(dbc dbctx.Context, sampleID string) (*types.CompositeEntity, error) {
	out, err := s.ReadMany(dbc, []string{sampleID})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apierr.E(apierr.SampleDoesNotExist, "sample %q does not exist", sampleID)
	}
	return out[0], nil
}

// ReadMany keeps the order of sampleIDs and skips ids that do not exist.
func (s *compositeEntityService) ReadMany(dbc dbctx.Context, sampleIDs []string) ([]*types.CompositeEntity, error) {
	samples, err := s.sampleRepo.GetByIDs(dbc, sampleIDs)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	specimenIDs := make([]string, 0, len(samples))
	for _, sa := range samples {
		specimenIDs = append(specimenIDs, sa.SpecimenID)
	}
	specimens, err := s.specimenRepo.GetByIDs(dbc, specimenIDs)
	if err != nil {
		return nil, fmt.Errorf("read specimens: %w", err)
	}
	specimenByID := make(map[string]*types.Specimen, len(specimens))
	donorIDs := make([]string, 0, len(specimens))
	for _, sp := range specimens {
		specimenByID[sp.ID] = sp
		donorIDs = append(donorIDs, sp.DonorID)
	}
	donors, err := s.donorRepo.GetByIDs(dbc, donorIDs)
	if err != nil {
		return nil, fmt.Errorf("read donors: %w", err)
	}
	donorByID := make(map[string]*types.Donor, len(donors))
	for _, d := range donors {
		donorByID[d.ID] = d
	}

	sampleInfo, err := s.info.ReadMany(dbc, types.InfoSample, sampleIDs)
	if err != nil {
		return nil, err
	}
	specimenInfo, err := s.info.ReadMany(dbc, types.InfoSpecimen, specimenIDs)
	if err != nil {
		return nil, err
	}
	donorInfo, err := s.info.ReadMany(dbc, types.InfoDonor, donorIDs)
	if err != nil {
		return nil, err
	}

	sampleByID := make(map[string]*types.Sample, len(samples))
	for _, sa := range samples {
		sampleByID[sa.ID] = sa
	}
	out := make([]*types.CompositeEntity, 0, len(samples))
	for _, id := range sampleIDs {
		sa, ok := sampleByID[id]
		if !ok {
			continue
		}
		sa.Info = sampleInfo[sa.ID]
		ce := &types.CompositeEntity{Sample: *sa}
		if sp, ok := specimenByID[sa.SpecimenID]; ok {
			sp.Info = specimenInfo[sp.ID]
			ce.Specimen = sp
			if d, ok := donorByID[sp.DonorID]; ok {
				d.Info = donorInfo[d.ID]
				ce.Donor = d
			}
		}
		out = append(out, ce)
	}
	return out, nil
}
