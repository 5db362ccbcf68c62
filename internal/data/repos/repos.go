package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/data/repos/analysis"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/metadata"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/upload"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type StudyRepo = metadata.StudyRepo
type DonorRepo = metadata.DonorRepo
type SpecimenRepo = metadata.SpecimenRepo
type SampleRepo = metadata.SampleRepo
type FileRepo = metadata.FileRepo
type InfoRepo = metadata.InfoRepo

type AnalysisRepo = analysis.AnalysisRepo
type AnalysisDataRepo = analysis.AnalysisDataRepo
type AnalysisSchemaRepo = analysis.AnalysisSchemaRepo
type SchemaFilter = analysis.SchemaFilter
type SampleSetRepo = analysis.SampleSetRepo
type StateChangeRepo = analysis.StateChangeRepo

type UploadRepo = upload.UploadRepo

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	return metadata.NewStudyRepo(db, baseLog)
}
func NewDonorRepo(db *gorm.DB, baseLog *logger.Logger) DonorRepo {
	return metadata.NewDonorRepo(db, baseLog)
}
func NewSpecimenRepo(db *gorm.DB, baseLog *logger.Logger) SpecimenRepo {
	return metadata.NewSpecimenRepo(db, baseLog)
}
func NewSampleRepo(db *gorm.DB, baseLog *logger.Logger) SampleRepo {
	return metadata.NewSampleRepo(db, baseLog)
}
func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return metadata.NewFileRepo(db, baseLog)
}
func NewInfoRepo(db *gorm.DB, baseLog *logger.Logger) InfoRepo {
	return metadata.NewInfoRepo(db, baseLog)
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return analysis.NewAnalysisRepo(db, baseLog)
}
func NewAnalysisDataRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisDataRepo {
	return analysis.NewAnalysisDataRepo(db, baseLog)
}
func NewAnalysisSchemaRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisSchemaRepo {
	return analysis.NewAnalysisSchemaRepo(db, baseLog)
}
func NewSampleSetRepo(db *gorm.DB, baseLog *logger.Logger) SampleSetRepo {
	return analysis.NewSampleSetRepo(db, baseLog)
}
func NewStateChangeRepo(db *gorm.DB, baseLog *logger.Logger) StateChangeRepo {
	return analysis.NewStateChangeRepo(db, baseLog)
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	return upload.NewUploadRepo(db, baseLog)
}
