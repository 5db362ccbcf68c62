package services

import (
	"encoding/json"
	"fmt"
	"sort"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
)

// ExperimentDecoder turns the "experiment" section of analysis data into
// the typed record of one analysis type.
type ExperimentDecoder func(raw json.RawMessage) (any, error)

// ExperimentRegistry maps analysis type names to their experiment decoders.
// Types without a decoder are schema-only.
type ExperimentRegistry interface {
	Decode(typeName string, data map[string]json.RawMessage) (any, bool, error)
	Names() []string
}

type experimentRegistry struct {
	decoders map[string]ExperimentDecoder
}

func NewExperimentRegistry(decoders map[string]ExperimentDecoder) ExperimentRegistry {
	m := make(map[string]ExperimentDecoder, len(decoders))
	for k, v := range decoders {
		m[k] = v
	}
	return &experimentRegistry{decoders: m}
}

// DefaultExperimentRegistry knows sequencingRead and variantCall.
func DefaultExperimentRegistry() ExperimentRegistry {
	return NewExperimentRegistry(map[string]ExperimentDecoder{
		"sequencingRead": decodeSequencingRead,
		"variantCall":    decodeVariantCall,
	})
}

func (r *experimentRegistry) Decode(typeName string, data map[string]json.RawMessage) (any, bool, error) {
	dec, ok := r.decoders[typeName]
	if !ok {
		return nil, false, nil
	}
	raw, ok := data["experiment"]
	if !ok {
		return nil, true, fmt.Errorf("%s analysis is missing its experiment", typeName)
	}
	v, err := dec(raw)
	if err != nil {
		return nil, true, fmt.Errorf("%s experiment: %w", typeName, err)
	}
	return v, true, nil
}

func (r *experimentRegistry) Names() []string {
	out := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func decodeSequencingRead(raw json.RawMessage) (any, error) {
	var sr types.SequencingRead
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, err
	}
	if sr.LibraryStrategy == "" {
		return nil, fmt.Errorf("libraryStrategy is required")
	}
	if sr.Aligned == nil || sr.PairedEnd == nil {
		return nil, fmt.Errorf("aligned and pairedEnd are required")
	}
	if sr.InsertSize != nil && *sr.InsertSize < 0 {
		return nil, fmt.Errorf("insertSize must not be negative")
	}
	return &sr, nil
}

func decodeVariantCall(raw json.RawMessage) (any, error) {
	var vc types.VariantCall
	if err := json.Unmarshal(raw, &vc); err != nil {
		return nil, err
	}
	if vc.VariantCallingTool == "" {
		return nil, fmt.Errorf("variantCallingTool is required")
	}
	if vc.MatchedNormalSampleSubmitterID == "" {
		return nil, fmt.Errorf("matchedNormalSampleSubmitterId is required")
	}
	return &vc, nil
}
