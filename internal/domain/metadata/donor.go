package metadata

import (
	"time"

	"gorm.io/datatypes"
)

type Donor struct {
	ID               string         `gorm:"column:id;primaryKey" json:"donorId"`
	StudyID          string         `gorm:"column:study_id;not null;index:idx_donor_study_submitter,unique,priority:1" json:"studyId"`
	SubmitterDonorID string         `gorm:"column:submitter_donor_id;not null;index:idx_donor_study_submitter,unique,priority:2" json:"submitterDonorId"`
	Gender           string         `gorm:"column:gender" json:"gender"`
	Info             datatypes.JSON `gorm:"-" json:"info,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"-"`
	UpdatedAt        time.Time      `gorm:"not null" json:"-"`
}

func (Donor) TableName() string { return "donor" }

// SameData compares the submitter-controlled fields.
func (d *Donor) SameData(o *Donor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.StudyID == o.StudyID &&
		d.SubmitterDonorID == o.SubmitterDonorID &&
		d.Gender == o.Gender
}
