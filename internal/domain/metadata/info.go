package metadata

import (
	"time"

	"gorm.io/datatypes"
)

// InfoKind names the owner type of a free-form info blob.
type InfoKind string

const (
	InfoStudy    InfoKind = "Study"
	InfoDonor    InfoKind = "Donor"
	InfoSpecimen InfoKind = "Specimen"
	InfoSample   InfoKind = "Sample"
	InfoFile     InfoKind = "File"
	InfoAnalysis InfoKind = "Analysis"
)

// Info holds the free-form metadata of any entity, keyed by (kind, owner id).
type Info struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	IDType    InfoKind       `gorm:"column:id_type;primaryKey" json:"idType"`
	Info      datatypes.JSON `gorm:"column:info;type:jsonb" json:"info"`
	CreatedAt time.Time      `gorm:"not null" json:"-"`
	UpdatedAt time.Time      `gorm:"not null" json:"-"`
}

func (Info) TableName() string { return "info" }
