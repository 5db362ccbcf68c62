package upload

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

func TestUploadLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewUploadRepo(db, testutil.Logger(t))

	old := time.Now().UTC().Add(-time.Hour)
	u := &types.Upload{ID: "UP1", StudyID: "S1", AnalysisID: "AN1", State: types.UploadStateCreated, Payload: "{}", CreatedAt: old, UpdatedAt: old}
	if err := repo.Create(dbc, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale, err := repo.ListStaleCreated(dbc, time.Now().UTC().Add(-time.Minute), 10)
	if err != nil || len(stale) != 1 {
		t.Fatalf("ListStaleCreated: err=%v len=%d", err, len(stale))
	}

	if ok, err := repo.MarkSaved(dbc, "UP1", "AN1", time.Now().UTC()); err != nil || ok {
		t.Fatalf("MarkSaved before validation: want ok=false got=%v err=%v", ok, err)
	}

	ok, err := repo.FinishValidation(dbc, "UP1", 0, types.UploadStateValidated, nil, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("FinishValidation: ok=%v err=%v", ok, err)
	}
	ok, err = repo.FinishValidation(dbc, "UP1", 0, types.UploadStateValidationError, datatypes.JSON(`["x"]`), time.Now().UTC())
	if err != nil || ok {
		t.Fatalf("second FinishValidation must not apply: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByStudyAndAnalysisID(dbc, "S1", "AN1")
	if err != nil || got == nil || got.State != types.UploadStateValidated {
		t.Fatalf("GetByStudyAndAnalysisID: got=%v err=%v", got, err)
	}

	if other, err := repo.ExistsForAnalysisIDOutsideStudy(dbc, "S2", "AN1"); err != nil || !other {
		t.Fatalf("ExistsForAnalysisIDOutsideStudy(S2): want=true got=%v err=%v", other, err)
	}
	if other, err := repo.ExistsForAnalysisIDOutsideStudy(dbc, "S1", "AN1"); err != nil || other {
		t.Fatalf("ExistsForAnalysisIDOutsideStudy(S1): want=false got=%v err=%v", other, err)
	}

	if ok, err := repo.MarkSaved(dbc, "UP1", "AN1", time.Now().UTC()); err != nil || !ok {
		t.Fatalf("MarkSaved: ok=%v err=%v", ok, err)
	}
}

func TestResetInvalidatesInFlightValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewUploadRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	u := &types.Upload{ID: "UP2", StudyID: "S1", AnalysisID: "AN2", State: types.UploadStateCreated, Payload: `{"v":1}`, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(dbc, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	checked, err := repo.GetByID(dbc, "UP2")
	if err != nil || checked == nil {
		t.Fatalf("GetByID: got=%v err=%v", checked, err)
	}

	if err := repo.Reset(dbc, "UP2", `{"v":2}`, now); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	ok, err := repo.FinishValidation(dbc, "UP2", checked.Generation, types.UploadStateValidated, nil, now)
	if err != nil || ok {
		t.Fatalf("result for replaced payload must not apply: ok=%v err=%v", ok, err)
	}

	current, err := repo.GetByID(dbc, "UP2")
	if err != nil || current == nil {
		t.Fatalf("GetByID: got=%v err=%v", current, err)
	}
	if current.State != types.UploadStateCreated || current.Generation != checked.Generation+1 {
		t.Fatalf("after reset: want=CREATED/%d got=%s/%d", checked.Generation+1, current.State, current.Generation)
	}
	if ok, err := repo.FinishValidation(dbc, "UP2", current.Generation, types.UploadStateValidated, nil, now); err != nil || !ok {
		t.Fatalf("FinishValidation on current generation: ok=%v err=%v", ok, err)
	}
}
