package services

import (
	"testing"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
)

func TestCorruptedAnalysisReads(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(h *harness, analysisID string) error
		want    apierr.Code
	}{
		{
			name: "sampleset links deleted",
			corrupt: func(h *harness, analysisID string) error {
				return h.dbc.Tx.Where("analysis_id = ?", analysisID).Delete(&types.SampleSet{}).Error
			},
			want: apierr.AnalysisMissingSamples,
		},
		{
			name: "sample rows deleted",
			corrupt: func(h *harness, _ string) error {
				return h.dbc.Tx.Where("study_id = ?", h.studyID).Delete(&types.Sample{}).Error
			},
			want: apierr.AnalysisMissingSamples,
		},
		{
			name: "file rows deleted",
			corrupt: func(h *harness, analysisID string) error {
				return h.dbc.Tx.Where("analysis_id = ?", analysisID).Delete(&types.File{}).Error
			},
			want: apierr.AnalysisMissingFiles,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			id := h.createAnalysis(t, payloadOpts{})
			if err := tc.corrupt(h, id); err != nil {
				t.Fatalf("corrupt: %v", err)
			}

			if tc.want == apierr.AnalysisMissingFiles {
				_, err := h.analyses.UnsecuredReadFiles(h.dbc, id)
				wantCode(t, err, tc.want)
			} else {
				_, err := h.analyses.ReadSamples(h.dbc, id)
				wantCode(t, err, tc.want)
			}
			_, err := h.analyses.UnsecuredDeepRead(h.dbc, id)
			wantCode(t, err, tc.want)
			_, err = h.analyses.SecuredDeepRead(h.dbc, h.studyID, id)
			wantCode(t, err, tc.want)
		})
	}
}
