package uploadvalidation

import (
	types "github.com/yungbote/songcatalog-backend/internal/domain"
)

const (
	WorkflowName     = "upload_validation"
	ActivityValidate = "upload_validation_validate"
	workflowIDPrefix = "upload-validation-"
)

type Result struct {
	UploadID string            `json:"upload_id"`
	State    types.UploadState `json:"state"`
}

func WorkflowID(uploadID string) string {
	return workflowIDPrefix + uploadID
}
