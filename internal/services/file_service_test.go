package services

import (
	"strings"
	"testing"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
)

func ptr[T any](v T) *T { return &v }

func (h *harness) publishedAnalysis(t *testing.T) (string, *types.File) {
	t.Helper()
	id := h.createAnalysis(t, payloadOpts{})
	files := h.stageFiles(t, id)
	if _, err := h.analyses.Publish(h.dbc, "", h.studyID, id, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return id, files[0]
}

func TestFileReadIsStudyScoped(t *testing.T) {
	h := newHarness(t)
	id := h.createAnalysis(t, payloadOpts{})
	files := h.stageFiles(t, id)

	f, err := h.files.Read(h.dbc, h.studyID, files[0].ObjectID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.AnalysisID != id || f.FileName != "reads.bam" {
		t.Fatalf("file: got=%+v", f)
	}
	_, err = h.files.Read(h.dbc, h.newStudy(t), files[0].ObjectID)
	wantCode(t, err, apierr.EntityNotRelatedToStudy)
	_, err = h.files.Read(h.dbc, h.studyID, "missing")
	wantCode(t, err, apierr.FileNotFound)
	_, err = h.files.Read(h.dbc, "NOPE", "missing")
	wantCode(t, err, apierr.StudyIDDoesNotExist)
}

func TestFileContentUpdateUnpublishes(t *testing.T) {
	h := newHarness(t)
	id, f := h.publishedAnalysis(t)

	resp, err := h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{FileSize: ptr(int64(4096))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !resp.UnpublishedAnalysis || resp.FileUpdateType != FileContentUpdate {
		t.Fatalf("response: got=%+v", resp)
	}
	if resp.OriginalAnalysisState != types.AnalysisStatePublished || resp.OriginalFile.FileSize != 1024 {
		t.Fatalf("original: state=%s size=%d", resp.OriginalAnalysisState, resp.OriginalFile.FileSize)
	}
	if !strings.HasPrefix(resp.Message, "[WARNING]") {
		t.Fatalf("message: got=%q", resp.Message)
	}
	if got := h.state(t, id); got != types.AnalysisStateUnpublished {
		t.Fatalf("state: want=UNPUBLISHED got=%s", got)
	}
	updated, err := h.files.Read(h.dbc, h.studyID, f.ObjectID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if updated.FileSize != 4096 {
		t.Fatalf("fileSize: want=4096 got=%d", updated.FileSize)
	}
	if got := h.events.actions(); got[len(got)-1] != "UNPUBLISH" {
		t.Fatalf("events: want last=UNPUBLISH got=%v", got)
	}
}

func TestFileMetadataUpdateKeepsState(t *testing.T) {
	h := newHarness(t)
	id, f := h.publishedAnalysis(t)

	resp, err := h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{
		FileAccess: ptr(types.FileAccessControlled),
		Info:       []byte(`{"note":"restricted"}`),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.UnpublishedAnalysis || resp.FileUpdateType != FileMetadataUpdate {
		t.Fatalf("response: got=%+v", resp)
	}
	if got := h.state(t, id); got != types.AnalysisStatePublished {
		t.Fatalf("state: want=PUBLISHED got=%s", got)
	}
	updated, err := h.files.Read(h.dbc, h.studyID, f.ObjectID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if updated.FileAccess != types.FileAccessControlled || !strings.Contains(string(updated.Info), "restricted") {
		t.Fatalf("file after update: %+v", updated)
	}

	resp, err = h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{FileMD5Sum: ptr(strings.ToUpper(testMD5))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.FileUpdateType != FileNoUpdate {
		t.Fatalf("same md5 in another case: want=%s got=%s", FileNoUpdate, resp.FileUpdateType)
	}
}

func TestFileUpdateOnUnpublishedAnalysis(t *testing.T) {
	h := newHarness(t)
	id := h.createAnalysis(t, payloadOpts{})
	files := h.stageFiles(t, id)

	resp, err := h.files.Update(h.dbc, h.studyID, files[0].ObjectID, FileUpdateRequest{FileMD5Sum: ptr("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.UnpublishedAnalysis || resp.FileUpdateType != FileContentUpdate {
		t.Fatalf("response: got=%+v", resp)
	}
	if !strings.Contains(resp.Message, "Did not change analysisState") {
		t.Fatalf("message: got=%q", resp.Message)
	}
}

func TestFileUpdateRejections(t *testing.T) {
	h := newHarness(t)
	id, f := h.publishedAnalysis(t)

	_, err := h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{})
	wantCode(t, err, apierr.InvalidFileUpdate)
	_, err = h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{FileMD5Sum: ptr("nothex")})
	wantCode(t, err, apierr.InvalidFileUpdate)
	_, err = h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{FileAccess: ptr("public")})
	wantCode(t, err, apierr.InvalidFileUpdate)

	if err := h.analyses.Suppress(h.dbc, h.studyID, id); err != nil {
		t.Fatalf("Suppress: %v", err)
	}
	_, err = h.files.Update(h.dbc, h.studyID, f.ObjectID, FileUpdateRequest{FileSize: ptr(int64(1))})
	wantCode(t, err, apierr.IllegalFileUpdate)
}
