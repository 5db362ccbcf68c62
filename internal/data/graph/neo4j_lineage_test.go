package graph

import (
	"context"
	"testing"
	"time"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
)

func TestBuildLineageRowsDedupesParents(t *testing.T) {
	donor := &types.Donor{ID: "D1", SubmitterDonorID: "donor-1"}
	specimen := &types.Specimen{ID: "SP1", DonorID: "D1", SubmitterSpecimenID: "sp-1"}
	v := &types.AnalysisView{
		AnalysisID:    "AN1",
		StudyID:       "ABC123",
		AnalysisState: types.AnalysisStatePublished,
		Samples: []*types.CompositeEntity{
			{Sample: types.Sample{ID: "SA1", SpecimenID: "SP1"}, Specimen: specimen, Donor: donor},
			{Sample: types.Sample{ID: "SA2", SpecimenID: "SP1"}, Specimen: specimen, Donor: donor},
			nil,
		},
		Files: []*types.File{{ObjectID: "F1", FileName: "a.bam"}, {FileName: "no-id"}},
	}

	rows := BuildLineageRows(v, time.Unix(0, 0))
	if len(rows.Donors) != 1 || len(rows.Specimens) != 1 {
		t.Fatalf("parents: want=1/1 got=%d/%d", len(rows.Donors), len(rows.Specimens))
	}
	if len(rows.Samples) != 2 {
		t.Fatalf("samples: want=2 got=%d", len(rows.Samples))
	}
	if len(rows.Files) != 1 || rows.Files[0]["id"] != "F1" {
		t.Fatalf("files: got=%v", rows.Files)
	}
	if rows.Analysis["state"] != "PUBLISHED" || rows.Analysis["study_id"] != "ABC123" {
		t.Fatalf("analysis row: got=%v", rows.Analysis)
	}
}

func TestUpsertAnalysisLineageWithoutClientIsNoop(t *testing.T) {
	if err := UpsertAnalysisLineage(context.Background(), nil, nil, &types.AnalysisView{AnalysisID: "AN1"}); err != nil {
		t.Fatalf("UpsertAnalysisLineage: %v", err)
	}
}
