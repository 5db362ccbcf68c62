package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type Repos struct {
	Study        repos.StudyRepo
	Donor        repos.DonorRepo
	Specimen     repos.SpecimenRepo
	Sample       repos.SampleRepo
	File         repos.FileRepo
	Info         repos.InfoRepo
	Analysis     repos.AnalysisRepo
	AnalysisData repos.AnalysisDataRepo
	Schema       repos.AnalysisSchemaRepo
	SampleSet    repos.SampleSetRepo
	StateChange  repos.StateChangeRepo
	Upload       repos.UploadRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Study:        repos.NewStudyRepo(db, log),
		Donor:        repos.NewDonorRepo(db, log),
		Specimen:     repos.NewSpecimenRepo(db, log),
		Sample:       repos.NewSampleRepo(db, log),
		File:         repos.NewFileRepo(db, log),
		Info:         repos.NewInfoRepo(db, log),
		Analysis:     repos.NewAnalysisRepo(db, log),
		AnalysisData: repos.NewAnalysisDataRepo(db, log),
		Schema:       repos.NewAnalysisSchemaRepo(db, log),
		SampleSet:    repos.NewSampleSetRepo(db, log),
		StateChange:  repos.NewStateChangeRepo(db, log),
		Upload:       repos.NewUploadRepo(db, log),
	}
}
