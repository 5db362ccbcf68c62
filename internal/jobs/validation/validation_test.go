package validation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type fakeValidation struct {
	mu   sync.Mutex
	seen []string
	done chan string
	fail bool
}

func (f *fakeValidation) ValidatePayload(dbctx.Context, []byte) ([]string, error) { return nil, nil }

func (f *fakeValidation) ValidateUpload(_ dbctx.Context, uploadID string) (types.UploadState, error) {
	f.mu.Lock()
	f.seen = append(f.seen, uploadID)
	f.mu.Unlock()
	defer func() { f.done <- uploadID }()
	if uploadID == "panic" {
		panic("boom")
	}
	if f.fail {
		return "", errors.New("db down")
	}
	return types.UploadStateValidated, nil
}

func TestPoolValidatesDispatchedUploads(t *testing.T) {
	fv := &fakeValidation{done: make(chan string, 4)}
	p := NewPool(logger.Nop(), fv, Config{Workers: 2, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	for _, id := range []string{"u1", "panic", "u2"} {
		if err := p.Dispatch(ctx, id); err != nil {
			t.Fatalf("Dispatch(%s): %v", id, err)
		}
	}
	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-fv.done:
			got[id] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for validation, saw %v", got)
		}
	}
	if !got["u1"] || !got["u2"] || !got["panic"] {
		t.Fatalf("validated: got=%v", got)
	}

	p.Stop()
	if err := p.Dispatch(ctx, "late"); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop: want=%v got=%v", ErrStopped, err)
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	fv := &fakeValidation{done: make(chan string, 4)}
	p := NewPool(logger.Nop(), fv, Config{Workers: 1, QueueSize: 1})
	// not started: the single slot fills and the next dispatch is refused
	if err := p.Dispatch(context.Background(), "u1"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := p.Dispatch(context.Background(), "u2"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want=%v got=%v", ErrQueueFull, err)
	}
}

type recordingDispatcher struct{ ids []string }

func (d *recordingDispatcher) Dispatch(_ context.Context, id string) error {
	d.ids = append(d.ids, id)
	return nil
}

// txUploads pins the repo to the test transaction.
type txUploads struct {
	repos.UploadRepo
	tx dbctx.Context
}

func (r txUploads) ListStaleCreated(_ dbctx.Context, olderThan time.Time, limit int) ([]*types.Upload, error) {
	return r.UploadRepo.ListStaleCreated(r.tx, olderThan, limit)
}

func TestSweeperRedispatchesStaleUploads(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := repos.NewUploadRepo(db, log)

	old := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()
	seed := []*types.Upload{
		{ID: "sweep-old", StudyID: "ST", State: types.UploadStateCreated, CreatedAt: old, UpdatedAt: old},
		{ID: "sweep-fresh", StudyID: "ST", State: types.UploadStateCreated, CreatedAt: fresh, UpdatedAt: fresh},
		{ID: "sweep-done", StudyID: "ST", State: types.UploadStateValidated, CreatedAt: old, UpdatedAt: old},
	}
	for _, u := range seed {
		u.Errors = datatypes.JSON("[]")
		if err := repo.Create(dbc, u); err != nil {
			t.Fatalf("seed %s: %v", u.ID, err)
		}
	}

	d := &recordingDispatcher{}
	s := NewSweeper(log, txUploads{UploadRepo: repo, tx: dbc}, d, SweeperConfig{Grace: 10 * time.Minute, Batch: 10})
	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 || len(d.ids) != 1 || d.ids[0] != "sweep-old" {
		t.Fatalf("swept: want=[sweep-old] got=%v", d.ids)
	}
}
