package analysis

import "time"

type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionUpdate    Action = "UPDATE"
	ActionPublish   Action = "PUBLISH"
	ActionUnpublish Action = "UNPUBLISH"
	ActionSuppress  Action = "SUPPRESS"
)

// Event is emitted after an analysis is created or changes.
type Event struct {
	AnalysisID string    `json:"analysis_id"`
	StudyID    string    `json:"study_id"`
	State      State     `json:"state"`
	Action     Action    `json:"action"`
	At         time.Time `json:"at"`
}
