package domain

import (
	"github.com/yungbote/songcatalog-backend/internal/domain/analysis"
	"github.com/yungbote/songcatalog-backend/internal/domain/metadata"
	"github.com/yungbote/songcatalog-backend/internal/domain/upload"
)

const (
	AnalysisStateUnpublished = analysis.StateUnpublished
	AnalysisStatePublished   = analysis.StatePublished
	AnalysisStateSuppressed  = analysis.StateSuppressed

	UploadStateCreated         = upload.StateCreated
	UploadStateValidated       = upload.StateValidated
	UploadStateValidationError = upload.StateValidationError
	UploadStateSaved           = upload.StateSaved

	InfoStudy    = metadata.InfoStudy
	InfoDonor    = metadata.InfoDonor
	InfoSpecimen = metadata.InfoSpecimen
	InfoSample   = metadata.InfoSample
	InfoFile     = metadata.InfoFile
	InfoAnalysis = metadata.InfoAnalysis

	FileAccessOpen       = metadata.FileAccessOpen
	FileAccessControlled = metadata.FileAccessControlled
)

type (
	Study               = metadata.Study
	StudyWithDonors     = metadata.StudyWithDonors
	DonorWithSpecimens  = metadata.DonorWithSpecimens
	SpecimenWithSamples = metadata.SpecimenWithSamples
	Donor               = metadata.Donor
	Specimen            = metadata.Specimen
	Sample              = metadata.Sample
	CompositeEntity     = metadata.CompositeEntity
	File                = metadata.File
	Info                = metadata.Info
	InfoKind            = metadata.InfoKind

	Analysis            = analysis.Analysis
	AnalysisData        = analysis.Data
	AnalysisView        = analysis.View
	AnalysisPage        = analysis.Page
	AnalysisState       = analysis.State
	AnalysisStateChange = analysis.StateChange
	AnalysisSchema      = analysis.Schema
	AnalysisType        = analysis.Type
	AnalysisTypePage    = analysis.TypePage
	AnalysisTypeRef     = analysis.TypeRef
	AnalysisEvent       = analysis.Event
	AnalysisAction      = analysis.Action
	SampleSet           = analysis.SampleSet
	SequencingRead      = analysis.SequencingRead
	VariantCall         = analysis.VariantCall

	Upload       = upload.Upload
	UploadState  = upload.State
	UploadStatus = upload.Status
)

// AllModels lists every persisted table, in migration order.
func AllModels() []any {
	return []any{
		&Study{},
		&Donor{},
		&Specimen{},
		&Sample{},
		&Info{},
		&AnalysisSchema{},
		&Analysis{},
		&AnalysisData{},
		&SampleSet{},
		&File{},
		&AnalysisStateChange{},
		&Upload{},
	}
}
