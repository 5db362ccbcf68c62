package metadata

import (
	"time"

	"gorm.io/datatypes"
)

type Specimen struct {
	ID                      string         `gorm:"column:id;primaryKey" json:"specimenId"`
	DonorID                 string         `gorm:"column:donor_id;not null;index" json:"donorId"`
	StudyID                 string         `gorm:"column:study_id;not null;index:idx_specimen_study_submitter,unique,priority:1" json:"-"`
	SubmitterSpecimenID     string         `gorm:"column:submitter_specimen_id;not null;index:idx_specimen_study_submitter,unique,priority:2" json:"submitterSpecimenId"`
	SpecimenType            string         `gorm:"column:specimen_type" json:"specimenType"`
	SpecimenTissueSource    string         `gorm:"column:specimen_tissue_source" json:"specimenTissueSource"`
	TumourNormalDesignation string         `gorm:"column:tumour_normal_designation" json:"tumourNormalDesignation"`
	Info                    datatypes.JSON `gorm:"-" json:"info,omitempty"`
	CreatedAt               time.Time      `gorm:"not null" json:"-"`
	UpdatedAt               time.Time      `gorm:"not null" json:"-"`
}

func (Specimen) TableName() string { return "specimen" }

func (s *Specimen) SameData(o *Specimen) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.DonorID == o.DonorID &&
		s.SubmitterSpecimenID == o.SubmitterSpecimenID &&
		s.SpecimenType == o.SpecimenType &&
		s.SpecimenTissueSource == o.SpecimenTissueSource &&
		s.TumourNormalDesignation == o.TumourNormalDesignation
}
