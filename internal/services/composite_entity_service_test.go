package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

func composite(donor, gender, specimen, sample string) *types.CompositeEntity {
	return &types.CompositeEntity{
		Sample: types.Sample{SubmitterSampleID: sample, SampleType: "DNA"},
		Specimen: &types.Specimen{
			SubmitterSpecimenID:     specimen,
			SpecimenType:            "Primary tumour",
			SpecimenTissueSource:    "Solid tissue",
			TumourNormalDesignation: "Tumour",
		},
		Donor: &types.Donor{SubmitterDonorID: donor, Gender: gender},
	}
}

func TestIDResolverIsDeterministic(t *testing.T) {
	ids := NewIDResolver()
	a, b := ids.DonorID("ST1", "D1"), ids.DonorID("ST1", "D1")
	if a == "" || a != b {
		t.Fatalf("same business key: got=%q/%q", a, b)
	}
	if ids.DonorID("ST2", "D1") == a {
		t.Fatalf("donor ids must be scoped to the study")
	}
	if ids.SampleID("ST1", "D1") == a {
		t.Fatalf("sample and donor ids must not collide for the same key")
	}
	if ids.FileID("AN1", "a.bam") != ids.FileID("AN1", "a.bam") {
		t.Fatalf("file ids must be deterministic")
	}
	if ids.NewAnalysisID() == ids.NewAnalysisID() {
		t.Fatalf("generated analysis ids must be unique")
	}
}

func TestCompositeSaveIsIdempotent(t *testing.T) {
	h := newHarness(t)

	first, err := h.entities.Save(h.dbc, h.studyID, composite("D1", "Female", "SP1", "SA1"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := h.entities.Save(h.dbc, h.studyID, composite("D1", "Female", "SP1", "SA1"))
	if err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if first != second || first != h.ids.SampleID(h.studyID, "SA1") {
		t.Fatalf("sample id: want=%s got=%s/%s", h.ids.SampleID(h.studyID, "SA1"), first, second)
	}

	ce, err := h.entities.Read(h.dbc, first)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ce.Donor == nil || ce.Donor.SubmitterDonorID != "D1" || ce.Specimen == nil || ce.Specimen.SubmitterSpecimenID != "SP1" {
		t.Fatalf("composite: got=%+v", ce)
	}
	if ce.Specimen.DonorID != ce.Donor.ID || ce.SpecimenID != ce.Specimen.ID {
		t.Fatalf("parent links broken: %+v", ce)
	}

	_, err = h.entities.Read(h.dbc, "missing")
	wantCode(t, err, apierr.SampleDoesNotExist)
}

func TestCompositeSaveDetectsConflicts(t *testing.T) {
	h := newHarness(t)
	if _, err := h.entities.Save(h.dbc, h.studyID, composite("D1", "Male", "SP1", "SA1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := h.entities.Save(h.dbc, h.studyID, composite("D1", "Female", "SP1", "SA1"))
	wantCode(t, err, apierr.MismatchingDonorData)

	// the specimen already hangs off D1
	_, err = h.entities.Save(h.dbc, h.studyID, composite("D2", "Male", "SP1", "SA9"))
	wantCode(t, err, apierr.SpecimenToDonorIDMismatch)

	changed := composite("D1", "Male", "SP1", "SA1")
	changed.Specimen.TumourNormalDesignation = "Normal"
	_, err = h.entities.Save(h.dbc, h.studyID, changed)
	wantCode(t, err, apierr.MismatchingSpecimenData)

	// the sample already hangs off SP1
	_, err = h.entities.Save(h.dbc, h.studyID, composite("D1", "Male", "SP2", "SA1"))
	wantCode(t, err, apierr.SampleToSpecimenIDMismatch)

	changed = composite("D1", "Male", "SP1", "SA1")
	changed.SampleType = "RNA"
	_, err = h.entities.Save(h.dbc, h.studyID, changed)
	wantCode(t, err, apierr.MismatchingSampleData)
}

func TestSuppliedIDsMustMatchBusinessKey(t *testing.T) {
	h := newHarness(t)

	ce := composite("D1", "Male", "SP1", "SA1")
	ce.Donor.ID = "not-the-derived-id"
	_, err := h.entities.Save(h.dbc, h.studyID, ce)
	wantCode(t, err, apierr.DonorIDIsCorrupted)

	ce = composite("D1", "Male", "SP1", "SA1")
	ce.Specimen.ID = "not-the-derived-id"
	_, err = h.entities.Save(h.dbc, h.studyID, ce)
	wantCode(t, err, apierr.SpecimenIDIsCorrupted)

	ce = composite("D1", "Male", "SP1", "SA1")
	ce.Sample.ID = "not-the-derived-id"
	_, err = h.entities.Save(h.dbc, h.studyID, ce)
	wantCode(t, err, apierr.SampleIDIsCorrupted)

	ce = composite("D1", "Male", "SP1", "SA1")
	ce.Donor.ID = h.ids.DonorID(h.studyID, "D1")
	if _, err := h.entities.Save(h.dbc, h.studyID, ce); err != nil {
		t.Fatalf("matching supplied id: %v", err)
	}
}

func TestDonorCreateRejectsExisting(t *testing.T) {
	h := newHarness(t)
	id, err := h.donors.Create(h.dbc, h.studyID, &types.Donor{SubmitterDonorID: "D1", Gender: "Other"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = h.donors.Create(h.dbc, h.studyID, &types.Donor{SubmitterDonorID: "D1", Gender: "Other"})
	wantCode(t, err, apierr.DonorAlreadyExists)

	// save is find-or-create: same data resolves to the stored id
	got, err := h.donors.Save(h.dbc, h.studyID, &types.Donor{SubmitterDonorID: "D1", Gender: "Other"})
	if err != nil || got != id {
		t.Fatalf("Save: want=%s got=%s err=%v", id, got, err)
	}

	_, err = h.donors.Read(h.dbc, "OTHER-STUDY", id)
	wantCode(t, err, apierr.DonorDoesNotExist)
}

func TestConcurrentDonorSaveCreatesOneRow(t *testing.T) {
	// each save runs in its own autocommit statement so the writers race
	db := testutil.DB(t)
	log := testutil.Logger(t)
	donors := NewDonorService(log, repos.NewDonorRepo(db, log), NewIDResolver(), NewInfoService(log, repos.NewInfoRepo(db, log)))
	dbc := dbctx.Context{Ctx: context.Background()}
	studyID := "ST-race-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		db.Where("study_id = ?", studyID).Delete(&types.Donor{})
	})

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = donors.Save(dbc, studyID, &types.Donor{SubmitterDonorID: "D-race", Gender: "Female"})
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("Save #%d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("Save #%d: want=%s got=%s", i, ids[0], ids[i])
		}
	}
	var n int64
	if err := db.Model(&types.Donor{}).
		Where("study_id = ? AND submitter_donor_id = ?", studyID, "D-race").
		Count(&n).Error; err != nil {
		t.Fatalf("count donors: %v", err)
	}
	if n != 1 {
		t.Fatalf("donor rows: want=1 got=%d", n)
	}
}

func TestResaveKeepsStoredInfo(t *testing.T) {
	h := newHarness(t)
	first := composite("D1", "Male", "SP1", "SA1")
	first.Donor.Info = []byte(`{"cohort":"original"}`)
	first.Specimen.Info = []byte(`{"site":"original"}`)
	first.Info = []byte(`{"batch":"original"}`)
	id, err := h.entities.Save(h.dbc, h.studyID, first)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	again := composite("D1", "Male", "SP1", "SA1")
	again.Donor.Info = []byte(`{"cohort":"replaced"}`)
	again.Specimen.Info = []byte(`{"site":"replaced"}`)
	again.Info = []byte(`{"batch":"replaced"}`)
	if _, err := h.entities.Save(h.dbc, h.studyID, again); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	ce, err := h.entities.Read(h.dbc, id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for name, info := range map[string][]byte{"donor": ce.Donor.Info, "specimen": ce.Specimen.Info, "sample": ce.Info} {
		if !strings.Contains(string(info), "original") {
			t.Fatalf("%s info: want=original got=%s", name, info)
		}
	}
}
