package metadata

import (
	"time"

	"gorm.io/datatypes"
)

type Sample struct {
	ID                             string         `gorm:"column:id;primaryKey" json:"sampleId"`
	SpecimenID                     string         `gorm:"column:specimen_id;not null;index" json:"specimenId"`
	StudyID                        string         `gorm:"column:study_id;not null;index:idx_sample_study_submitter,unique,priority:1" json:"-"`
	SubmitterSampleID              string         `gorm:"column:submitter_sample_id;not null;index:idx_sample_study_submitter,unique,priority:2" json:"submitterSampleId"`
	SampleType                     string         `gorm:"column:sample_type" json:"sampleType"`
	MatchedNormalSubmitterSampleID *string        `gorm:"column:matched_normal_submitter_sample_id" json:"matchedNormalSubmitterSampleId"`
	Info                           datatypes.JSON `gorm:"-" json:"info,omitempty"`
	CreatedAt                      time.Time      `gorm:"not null" json:"-"`
	UpdatedAt                      time.Time      `gorm:"not null" json:"-"`
}

func (Sample) TableName() string { return "sample" }

func (s *Sample) SameData(o *Sample) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.SpecimenID == o.SpecimenID &&
		s.SubmitterSampleID == o.SubmitterSampleID &&
		s.SampleType == o.SampleType &&
		strPtrEqual(s.MatchedNormalSubmitterSampleID, o.MatchedNormalSubmitterSampleID)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CompositeEntity is the sample with its specimen and donor. It is assembled
// for submission and reads, never stored as a row.
type CompositeEntity struct {
	Sample
	Specimen *Specimen `json:"specimen"`
	Donor    *Donor    `json:"donor"`
}
