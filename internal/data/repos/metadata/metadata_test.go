package metadata

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

func TestStudyRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewStudyRepo(db, testutil.Logger(t))

	if err := repo.Create(dbc, &types.Study{ID: "ABC123", Name: "abc"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ok, err := repo.Exists(dbc, "ABC123")
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.Exists(dbc, "NOPE"); ok {
		t.Fatalf("Exists(NOPE): want=false")
	}
	got, err := repo.GetByID(dbc, "NOPE")
	if err != nil || got != nil {
		t.Fatalf("GetByID(NOPE): want nil,nil got=%v,%v", got, err)
	}
	ids, err := repo.ListIDs(dbc)
	if err != nil || len(ids) == 0 {
		t.Fatalf("ListIDs: err=%v ids=%v", err, ids)
	}
}

func TestDonorCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewDonorRepo(db, testutil.Logger(t))

	d := &types.Donor{ID: "DO1", StudyID: "S1", SubmitterDonorID: "sub-1", Gender: "Female"}
	created, err := repo.CreateIfAbsent(dbc, d)
	if err != nil || !created {
		t.Fatalf("first CreateIfAbsent: created=%v err=%v", created, err)
	}
	dup := &types.Donor{ID: "DO1", StudyID: "S1", SubmitterDonorID: "sub-1", Gender: "Male"}
	created, err = repo.CreateIfAbsent(dbc, dup)
	if err != nil || created {
		t.Fatalf("second CreateIfAbsent: want created=false got=%v err=%v", created, err)
	}
	got, err := repo.GetBySubmitterID(dbc, "S1", "sub-1")
	if err != nil || got == nil {
		t.Fatalf("GetBySubmitterID: got=%v err=%v", got, err)
	}
	if got.Gender != "Female" {
		t.Fatalf("existing row must not change: want=Female got=%s", got.Gender)
	}
	rows, err := repo.ListByStudy(dbc, "S1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByStudy: err=%v len=%d", err, len(rows))
	}
}

func TestSpecimenAndSampleLookups(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	log := testutil.Logger(t)
	specimens := NewSpecimenRepo(db, log)
	samples := NewSampleRepo(db, log)

	sp := &types.Specimen{ID: "SP1", DonorID: "DO1", StudyID: "S1", SubmitterSpecimenID: "spec-1", SpecimenType: "Normal"}
	if _, err := specimens.CreateIfAbsent(dbc, sp); err != nil {
		t.Fatalf("specimen CreateIfAbsent: %v", err)
	}
	sa := &types.Sample{ID: "SA1", SpecimenID: "SP1", StudyID: "S1", SubmitterSampleID: "sam-1", SampleType: "DNA"}
	if _, err := samples.CreateIfAbsent(dbc, sa); err != nil {
		t.Fatalf("sample CreateIfAbsent: %v", err)
	}
	if rows, err := specimens.ListByDonorIDs(dbc, []string{"DO1"}); err != nil || len(rows) != 1 {
		t.Fatalf("ListByDonorIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := samples.ListBySpecimenIDs(dbc, []string{"SP1"}); err != nil || len(rows) != 1 {
		t.Fatalf("ListBySpecimenIDs: err=%v len=%d", err, len(rows))
	}
	if got, err := samples.GetBySubmitterID(dbc, "S1", "sam-1"); err != nil || got == nil || got.ID != "SA1" {
		t.Fatalf("GetBySubmitterID: got=%v err=%v", got, err)
	}
	if got, err := specimens.GetByID(dbc, "missing"); err != nil || got != nil {
		t.Fatalf("GetByID(missing): want nil,nil got=%v,%v", got, err)
	}
}

func TestFileUpsertUpdatesInPlace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewFileRepo(db, testutil.Logger(t))

	f := &types.File{ObjectID: "OBJ1", AnalysisID: "AN1", StudyID: "S1", FileName: "a.bam", FileSize: 10, FileMD5Sum: "aaa", FileAccess: "open", FileType: "BAM"}
	if err := repo.Upsert(dbc, f); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	f2 := &types.File{ObjectID: "OBJ1", AnalysisID: "AN1", StudyID: "S1", FileName: "a.bam", FileSize: 20, FileMD5Sum: "bbb", FileAccess: "controlled", FileType: "BAM"}
	if err := repo.Upsert(dbc, f2); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	rows, err := repo.ListByAnalysisID(dbc, "AN1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByAnalysisID: err=%v len=%d", err, len(rows))
	}
	if rows[0].FileSize != 20 || rows[0].FileMD5Sum != "bbb" {
		t.Fatalf("want size=20 md5=bbb got size=%d md5=%s", rows[0].FileSize, rows[0].FileMD5Sum)
	}
	ids, err := repo.ListAnalysisIDsByObjectIDs(dbc, "S1", []string{"OBJ1"})
	if err != nil || len(ids) != 1 || ids[0] != "AN1" {
		t.Fatalf("ListAnalysisIDsByObjectIDs: ids=%v err=%v", ids, err)
	}
}

func TestInfoRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewInfoRepo(db, testutil.Logger(t))

	if err := repo.Upsert(dbc, types.InfoDonor, "DO1", datatypes.JSON(`{"a":1}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, types.InfoDonor, "DO1", datatypes.JSON(`{"a":2}`)); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	got, err := repo.Get(dbc, types.InfoDonor, "DO1")
	if err != nil || string(got) != `{"a":2}` {
		t.Fatalf("Get: got=%s err=%v", got, err)
	}
	if got, err := repo.Get(dbc, types.InfoSample, "DO1"); err != nil || got != nil {
		t.Fatalf("Get other kind: want nil got=%s err=%v", got, err)
	}
	many, err := repo.GetMany(dbc, types.InfoDonor, []string{"DO1", "DO2"})
	if err != nil || len(many) != 1 {
		t.Fatalf("GetMany: err=%v len=%d", err, len(many))
	}
}
