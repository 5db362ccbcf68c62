package analysis

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/domain/metadata"
)

// Analysis is the persisted shell. Its payload lives in Data, its files,
// samples and history in their own tables.
type Analysis struct {
	ID               string    `gorm:"column:id;primaryKey" json:"analysisId"`
	StudyID          string    `gorm:"column:study_id;not null;index" json:"studyId"`
	AnalysisSchemaID uint      `gorm:"column:analysis_schema_id;not null;index" json:"-"`
	State            State     `gorm:"column:analysis_state;not null;index" json:"analysisState"`
	CreatedAt        time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"not null" json:"updatedAt"`
}

func (Analysis) TableName() string { return "analysis" }

// Data is the schema-validated, experiment-specific portion of a submission.
type Data struct {
	AnalysisID string         `gorm:"column:analysis_id;primaryKey" json:"-"`
	Data       datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	CreatedAt  time.Time      `gorm:"not null" json:"-"`
	UpdatedAt  time.Time      `gorm:"not null" json:"-"`
}

func (Data) TableName() string { return "analysis_data" }

// SampleSet links an analysis to the samples it was submitted with.
type SampleSet struct {
	AnalysisID string `gorm:"column:analysis_id;primaryKey" json:"analysisId"`
	SampleID   string `gorm:"column:sample_id;primaryKey;index" json:"sampleId"`
}

func (SampleSet) TableName() string { return "sampleset" }

type StateChange struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	AnalysisID   string    `gorm:"column:analysis_id;not null;index" json:"-"`
	InitialState State     `gorm:"column:initial_state;not null" json:"initialState"`
	UpdatedState State     `gorm:"column:updated_state;not null" json:"updatedState"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (StateChange) TableName() string { return "analysis_state_change" }

// TypeRef is the {name, version} reference carried by payloads.
type TypeRef struct {
	Name    string `json:"name"`
	Version *int   `json:"version,omitempty"`
}

// View is the fully assembled analysis returned by reads.
type View struct {
	AnalysisID       string                      `json:"analysisId"`
	StudyID          string                      `json:"studyId"`
	AnalysisState    State                       `json:"analysisState"`
	AnalysisType     TypeRef                     `json:"analysisType"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
	FirstPublishedAt *time.Time                  `json:"firstPublishedAt,omitempty"`
	PublishedAt      *time.Time                  `json:"publishedAt,omitempty"`
	StateHistory     []StateChange               `json:"analysisStateHistory"`
	Samples          []*metadata.CompositeEntity `json:"samples,omitempty"`
	Files            []*metadata.File            `json:"files,omitempty"`
	Info             json.RawMessage             `json:"info,omitempty"`
	Data             map[string]json.RawMessage  `json:"-"`
}

// PopulatePublishTimes derives firstPublishedAt and publishedAt from the
// ordered history.
func (v *View) PopulatePublishTimes() {
	v.FirstPublishedAt = nil
	v.PublishedAt = nil
	for i := range v.StateHistory {
		sc := v.StateHistory[i]
		if sc.UpdatedState != StatePublished {
			continue
		}
		at := sc.UpdatedAt
		if v.FirstPublishedAt == nil {
			v.FirstPublishedAt = &at
		}
		v.PublishedAt = &at
	}
}

// MarshalJSON flattens the dynamic data next to the fixed fields. Fixed
// fields win on key collisions.
func (v View) MarshalJSON() ([]byte, error) {
	type fixed View
	raw, err := json.Marshal(fixed(v))
	if err != nil {
		return nil, err
	}
	if len(v.Data) == 0 {
		return raw, nil
	}
	merged := map[string]json.RawMessage{}
	for k, val := range v.Data {
		merged[k] = val
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	for k, val := range base {
		merged[k] = val
	}
	return json.Marshal(merged)
}

// Page is one slice of a study's analyses.
type Page struct {
	Analyses             []*View `json:"analyses"`
	CurrentTotalAnalyses int     `json:"currentTotalAnalyses"`
	TotalAnalyses        int64   `json:"totalAnalyses"`
}
