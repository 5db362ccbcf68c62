package analysis

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/db"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

func TestAnalysisStateTransitionsAreConditional(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewAnalysisRepo(gdb, testutil.Logger(t))

	now := time.Now().UTC()
	a := &types.Analysis{ID: "AN-1", StudyID: "S1", AnalysisSchemaID: 1, State: types.AnalysisStateUnpublished, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(dbc, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.UpdateState(dbc, "AN-1", types.AnalysisStateUnpublished, types.AnalysisStatePublished, now.Add(time.Second))
	if err != nil || !ok {
		t.Fatalf("UpdateState: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateState(dbc, "AN-1", types.AnalysisStateUnpublished, types.AnalysisStateSuppressed, now.Add(2*time.Second))
	if err != nil || ok {
		t.Fatalf("stale UpdateState: want ok=false got=%v err=%v", ok, err)
	}

	rows, err := repo.ListByStudy(dbc, "S1", []types.AnalysisState{types.AnalysisStatePublished})
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByStudy: err=%v len=%d", err, len(rows))
	}
	page, total, err := repo.PageByStudy(dbc, "S1", nil, 10, 0)
	if err != nil || total != 1 || len(page) != 1 {
		t.Fatalf("PageByStudy: err=%v total=%d len=%d", err, total, len(page))
	}

	// last: a failed insert aborts the surrounding Postgres transaction
	if err := repo.Create(dbc, &types.Analysis{ID: "AN-1", StudyID: "S1", State: types.AnalysisStateUnpublished, CreatedAt: now, UpdatedAt: now}); !db.IsUniqueViolation(err) {
		t.Fatalf("duplicate Create: want unique violation got=%v", err)
	}
}

func TestStateChangeOrdering(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewStateChangeRepo(gdb, testutil.Logger(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, to := range []types.AnalysisState{types.AnalysisStatePublished, types.AnalysisStateUnpublished, types.AnalysisStatePublished} {
		from := types.AnalysisStateUnpublished
		if i == 1 {
			from = types.AnalysisStatePublished
		}
		if err := repo.Append(dbc, &types.AnalysisStateChange{AnalysisID: "AN-2", InitialState: from, UpdatedState: to, UpdatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	hist, err := repo.ListByAnalysisID(dbc, "AN-2")
	if err != nil || len(hist) != 3 {
		t.Fatalf("ListByAnalysisID: err=%v len=%d", err, len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if !hist[i].UpdatedAt.After(hist[i-1].UpdatedAt) {
			t.Fatalf("history not increasing at %d", i)
		}
	}
}

func TestAnalysisSchemaRepo(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewAnalysisSchemaRepo(gdb, testutil.Logger(t))

	for v := 1; v <= 3; v++ {
		if err := repo.Create(dbc, &types.AnalysisSchema{Name: "variantCall", Version: v, Schema: datatypes.JSON(`{"type":"object"}`)}); err != nil {
			t.Fatalf("Create v%d: %v", v, err)
		}
	}
	if err := repo.Create(dbc, &types.AnalysisSchema{Name: "sequencingRead", Version: 1, Schema: datatypes.JSON(`{}`)}); err != nil {
		t.Fatalf("Create sequencingRead: %v", err)
	}

	latest, err := repo.GetLatest(dbc, "variantCall")
	if err != nil || latest == nil || latest.Version != 3 {
		t.Fatalf("GetLatest: got=%v err=%v", latest, err)
	}
	if n, err := repo.CountByName(dbc, "variantCall"); err != nil || n != 3 {
		t.Fatalf("CountByName: want=3 got=%d err=%v", n, err)
	}
	names, err := repo.ListNames(dbc)
	if err != nil || len(names) != 2 {
		t.Fatalf("ListNames: names=%v err=%v", names, err)
	}

	rows, total, err := repo.Page(dbc, SchemaFilter{Names: []string{"variantCall"}, Versions: []int{2, 3}, Limit: 1, Desc: true})
	if err != nil || total != 2 || len(rows) != 1 || rows[0].Version != 3 {
		t.Fatalf("Page: err=%v total=%d rows=%v", err, total, rows)
	}

	err = repo.Create(dbc, &types.AnalysisSchema{Name: "variantCall", Version: 2, Schema: datatypes.JSON(`{}`)})
	if !db.IsUniqueViolation(err) {
		t.Fatalf("duplicate version: want unique violation got=%v", err)
	}
}
