package services

import (
	"bytes"
	"encoding/json"
	"strings"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
)

// Keys that describe the submission itself rather than the experiment
// record. They never end up in analysis data.
var reservedPayloadKeys = map[string]bool{
	"analysisId":           true,
	"studyId":              true,
	"analysisType":         true,
	"analysisTypeId":       true,
	"analysisState":        true,
	"analysisStateHistory": true,
	"samples":              true,
	"files":                true,
	"info":                 true,
	"createdAt":            true,
	"updatedAt":            true,
	"firstPublishedAt":     true,
	"publishedAt":          true,
}

// Payload is a decoded submission.
type Payload struct {
	AnalysisID   string
	StudyID      string
	AnalysisType types.AnalysisTypeRef
	Samples      []*types.CompositeEntity
	Files        []*types.File
	Info         json.RawMessage
	Data         map[string]json.RawMessage
}

type payloadHead struct {
	AnalysisID   string                   `json:"analysisId"`
	StudyID      string                   `json:"studyId"`
	AnalysisType *types.AnalysisTypeRef   `json:"analysisType"`
	Samples      []*types.CompositeEntity `json:"samples"`
	Files        []*types.File            `json:"files"`
	Info         json.RawMessage          `json:"info"`
}

// DecodePayload splits a submission into its structural parts and the
// experiment data. Anything that is not a JSON object is PAYLOAD_PARSING.
func DecodePayload(raw []byte) (*Payload, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	var head payloadHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, apierr.Wrap(apierr.PayloadParsing, err, "unable to read the submitted payload")
	}
	p := &Payload{
		AnalysisID: strings.TrimSpace(head.AnalysisID),
		StudyID:    strings.TrimSpace(head.StudyID),
		Samples:    head.Samples,
		Files:      head.Files,
		Info:       head.Info,
		Data:       stripReserved(fields),
	}
	if head.AnalysisType != nil {
		p.AnalysisType = *head.AnalysisType
	}
	return p, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, apierr.E(apierr.PayloadParsing, "the payload must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, apierr.Wrap(apierr.PayloadParsing, err, "unable to read the submitted payload")
	}
	return fields, nil
}

func stripReserved(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if reservedPayloadKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// peekStudyID reads only studyId, used before a payload is validated.
func peekStudyID(raw []byte) (string, bool, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return "", false, err
	}
	v, ok := fields["studyId"]
	if !ok || string(bytes.TrimSpace(v)) == "null" {
		return "", false, nil
	}
	var id string
	if err := json.Unmarshal(v, &id); err != nil {
		return "", false, apierr.E(apierr.PayloadParsing, "studyId must be a string")
	}
	id = strings.TrimSpace(id)
	return id, id != "", nil
}

func peekAnalysisID(raw []byte) string {
	var head struct {
		AnalysisID string `json:"analysisId"`
	}
	if json.Unmarshal(raw, &head) != nil {
		return ""
	}
	return strings.TrimSpace(head.AnalysisID)
}
