package analysis

// SequencingRead is the experiment payload of "sequencingRead" analyses.
type SequencingRead struct {
	Aligned         *bool  `json:"aligned"`
	AlignmentTool   string `json:"alignmentTool,omitempty"`
	InsertSize      *int64 `json:"insertSize,omitempty"`
	LibraryStrategy string `json:"libraryStrategy"`
	PairedEnd       *bool  `json:"pairedEnd"`
	ReferenceGenome string `json:"referenceGenome,omitempty"`
}

// VariantCall is the experiment payload of "variantCall" analyses.
type VariantCall struct {
	VariantCallingTool             string `json:"variantCallingTool"`
	MatchedNormalSampleSubmitterID string `json:"matchedNormalSampleSubmitterId"`
}
