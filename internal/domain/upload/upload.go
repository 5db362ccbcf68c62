package upload

import (
	"time"

	"gorm.io/datatypes"
)

type State string

const (
	StateCreated         State = "CREATED"
	StateValidated       State = "VALIDATED"
	StateValidationError State = "VALIDATION_ERROR"
	StateSaved           State = "SAVED"
)

// Upload stages a raw submission until it is validated and saved. Generation
// is bumped every time the payload is replaced, so a validation result is
// only recorded against the payload it checked.
type Upload struct {
	ID         string         `gorm:"column:id;primaryKey" json:"uploadId"`
	StudyID    string         `gorm:"column:study_id;not null;index:idx_upload_study_analysis,priority:1" json:"studyId"`
	AnalysisID string         `gorm:"column:analysis_id;index:idx_upload_study_analysis,priority:2" json:"analysisId,omitempty"`
	State      State          `gorm:"column:state;not null;index" json:"state"`
	Errors     datatypes.JSON `gorm:"column:errors;type:jsonb" json:"errors"`
	Payload    string         `gorm:"column:payload;type:text" json:"payload"`
	Generation int            `gorm:"column:generation;not null;default:0" json:"-"`
	CreatedAt  time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null;index" json:"updatedAt"`
}

func (Upload) TableName() string { return "upload" }

// Status is returned by upload and save calls.
type Status struct {
	Status      string `json:"status"`
	UploadID    string `json:"uploadId,omitempty"`
	AnalysisID  string `json:"analysisId,omitempty"`
	StudyID     string `json:"studyId"`
	UploadState State  `json:"uploadState,omitempty"`
	Warning     string `json:"warning,omitempty"`
}
