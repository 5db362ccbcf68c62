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

type SampleService interface {
	Save(dbc dbctx.Context, studyID, specimenID string, sample *types.Sample) (string, error)
	Create(dbc dbctx.Context, studyID, specimenID string, sample *types.Sample) (string, error)
	Read(dbc dbctx.Context, studyID, sampleID string) (*types.Sample, error)
}

type sampleService struct {
	log        *logger.Logger
	sampleRepo repos.SampleRepo
	ids        IDResolver
	info       InfoService
}

func NewSampleService(baseLog *logger.Logger, sampleRepo repos.SampleRepo, ids IDResolver, info InfoService) SampleService {
	return &sampleService{
		log:        baseLog.With("service", "SampleService"),
		sampleRepo: sampleRepo,
		ids:        ids,
		info:       info,
	}
}

func (s *sampleService) prepare(studyID, specimenID string, sample *types.Sample) error {
	if sample == nil {
		return apierr.E(apierr.MalformedParameter, "sample is required")
	}
	sample.SubmitterSampleID = strings.TrimSpace(sample.SubmitterSampleID)
	if sample.SubmitterSampleID == "" {
		return apierr.E(apierr.MalformedParameter, "submitterSampleId is required")
	}
	computed := s.ids.SampleID(studyID, sample.SubmitterSampleID)
	if err := checkSuppliedID(apierr.SampleIDIsCorrupted, "sample", sample.ID, computed, sample.SubmitterSampleID); err != nil {
		return err
	}
	if sample.SpecimenID != "" && sample.SpecimenID != specimenID {
		return apierr.E(apierr.SampleToSpecimenIDMismatch,
			"sample %q names specimen %q but belongs to specimen %q", sample.SubmitterSampleID, sample.SpecimenID, specimenID)
	}
	sample.ID = computed
	sample.SpecimenID = specimenID
	sample.StudyID = studyID
	return nil
}

func (s *sampleService) Save(dbc dbctx.Context, studyID, specimenID string, sample *types.Sample) (string, error) {
	if err := s.prepare(studyID, specimenID, sample); err != nil {
		return "", err
	}
	existing, err := s.sampleRepo.GetBySubmitterID(dbc, studyID, sample.SubmitterSampleID)
	if err != nil {
		return "", fmt.Errorf("lookup sample %s: %w", sample.SubmitterSampleID, err)
	}
	if existing == nil {
		now := time.Now().UTC()
		sample.CreatedAt, sample.UpdatedAt = now, now
		created, err := s.sampleRepo.CreateIfAbsent(dbc, sample)
		if err != nil {
			return "", fmt.Errorf("create sample %s: %w", sample.SubmitterSampleID, err)
		}
		if !created {
			existing, err = s.sampleRepo.GetBySubmitterID(dbc, studyID, sample.SubmitterSampleID)
			if err != nil {
				return "", fmt.Errorf("re-read sample %s: %w", sample.SubmitterSampleID, err)
			}
		}
	}
	if existing != nil {
		if existing.ID != sample.ID {
			return "", apierr.E(apierr.SampleIDIsCorrupted, "stored sample %q has id %q, expected %q", sample.SubmitterSampleID, existing.ID, sample.ID)
		}
		if existing.SpecimenID != specimenID {
			return "", apierr.E(apierr.SampleToSpecimenIDMismatch,
				"sample %q belongs to specimen %q, not %q", sample.SubmitterSampleID, existing.SpecimenID, specimenID)
		}
		if !existing.SameData(sample) {
			return "", apierr.E(apierr.MismatchingSampleData,
				"sample %q already exists in study %q with different data", sample.SubmitterSampleID, studyID)
		}
		// a stored sample keeps the info it was first submitted with
		return existing.ID, nil
	}
	if err := s.info.Save(dbc, types.InfoSample, sample.ID, json.RawMessage(sample.Info)); err != nil {
		return "", err
	}
	return sample.ID, nil
}

func (s *sampleService) Create(dbc dbctx.Context, studyID, specimenID string, sample *types.Sample) (string, error) {
	if err := s.prepare(studyID, specimenID, sample); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sample.CreatedAt, sample.UpdatedAt = now, now
	created, err := s.sampleRepo.CreateIfAbsent(dbc, sample)
	if err != nil {
		return "", fmt.Errorf("create sample %s: %w", sample.SubmitterSampleID, err)
	}
	if !created {
		return "", apierr.E(apierr.SampleAlreadyExists, "sample %q already exists in study %q", sample.SubmitterSampleID, studyID)
	}
	if err := s.info.Save(dbc, types.InfoSample, sample.ID, json.RawMessage(sample.Info)); err != nil {
		return "", err
	}
	return sample.ID, nil
}

func (s *sampleService) Read(dbc dbctx.Context, studyID, sampleID string) (*types.Sample, error) {
	sample, err := s.sampleRepo.GetByID(dbc, sampleID)
	if err != nil {
		return nil, fmt.Errorf("read sample %s: %w", sampleID, err)
	}
	if sample == nil || (studyID != "" && sample.StudyID != studyID) {
		return nil, apierr.E(apierr.SampleDoesNotExist, "sample %q does not exist in study %q", sampleID, studyID)
	}
	if sample.Info, err = s.info.Read(dbc, types.InfoSample, sample.ID); err != nil {
		return nil, err
	}
	return sample, nil
}
