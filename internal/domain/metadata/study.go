package metadata

import (
	"time"

	"gorm.io/datatypes"
)

// Study is the root scope of every submission.
type Study struct {
	ID           string         `gorm:"column:id;primaryKey" json:"studyId"`
	Name         string         `gorm:"column:name" json:"name,omitempty"`
	Organization string         `gorm:"column:organization" json:"organization,omitempty"`
	Description  string         `gorm:"column:description" json:"description,omitempty"`
	Info         datatypes.JSON `gorm:"-" json:"info,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"-"`
	UpdatedAt    time.Time      `gorm:"not null" json:"-"`
}

func (Study) TableName() string { return "study" }

// StudyWithDonors is the denormalized study tree.
type StudyWithDonors struct {
	Study
	Donors []*DonorWithSpecimens `json:"donors"`
}

type DonorWithSpecimens struct {
	Donor
	Specimens []*SpecimenWithSamples `json:"specimens"`
}

type SpecimenWithSamples struct {
	Specimen
	Samples []*Sample `json:"samples"`
}
