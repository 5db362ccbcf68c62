package services

import (
	"github.com/gnames/gnuuid"
	"github.com/google/uuid"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
)

// IDResolver derives system ids. Entity ids are name-based UUIDv5 values of
// their business key so the same key always maps to the same id.
type IDResolver interface {
	DonorID(studyID, submitterDonorID string) string
	SpecimenID(studyID, submitterSpecimenID string) string
	SampleID(studyID, submitterSampleID string) string
	FileID(analysisID, fileName string) string
	NewAnalysisID() string
	NewUploadID() string
}

type idResolver struct{}

func NewIDResolver() IDResolver { return idResolver{} }

func (idResolver) DonorID(studyID, submitterDonorID string) string {
	return businessKeyID(studyID, submitterDonorID)
}

func (idResolver) SpecimenID(studyID, submitterSpecimenID string) string {
	return businessKeyID(studyID, submitterSpecimenID)
}

func (idResolver) SampleID(studyID, submitterSampleID string) string {
	return businessKeyID(studyID, submitterSampleID)
}

func (idResolver) FileID(analysisID, fileName string) string {
	return businessKeyID(analysisID, fileName)
}

func (idResolver) NewAnalysisID() string { return uuid.NewString() }

func (idResolver) NewUploadID() string { return uuid.NewString() }

func businessKeyID(scope, key string) string {
	return gnuuid.New(scope + ":" + key).String()
}

// checkSuppliedID rejects a client-supplied id that disagrees with the
// derived one.
func checkSuppliedID(code apierr.Code, kind, supplied, computed, businessKey string) error {
	if supplied == "" || supplied == computed {
		return nil
	}
	return apierr.E(code, "the supplied %s id %q does not match the id %q derived from %q", kind, supplied, computed, businessKey)
}
