package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yungbote/songcatalog-backend/internal/data/repos/testutil"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/jsonschema"
)

func uploadErrors(t *testing.T, u *types.Upload) []string {
	t.Helper()
	var out []string
	if err := json.Unmarshal(u.Errors, &out); err != nil {
		t.Fatalf("decode upload errors %s: %v", u.Errors, err)
	}
	return out
}

func TestUploadValidateAndSave(t *testing.T) {
	h := newHarness(t)
	status, err := h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: h.studyID}), false)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if status.UploadState != types.UploadStateValidated || status.UploadID == "" {
		t.Fatalf("status: got=%+v", status)
	}

	saved, err := h.uploads.Save(h.dbc, h.studyID, status.UploadID, false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.UploadState != types.UploadStateSaved || saved.AnalysisID == "" {
		t.Fatalf("save status: got=%+v", saved)
	}
	u, err := h.uploads.Status(h.dbc, h.studyID, status.UploadID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if u.State != types.UploadStateSaved || u.AnalysisID != saved.AnalysisID {
		t.Fatalf("upload after save: state=%s analysis=%s", u.State, u.AnalysisID)
	}
	if got := h.state(t, saved.AnalysisID); got != types.AnalysisStateUnpublished {
		t.Fatalf("saved analysis state: want=UNPUBLISHED got=%s", got)
	}

	_, err = h.uploads.Save(h.dbc, h.studyID, status.UploadID, false)
	wantCode(t, err, apierr.UploadIDNotValidated)
}

func TestUploadValidationErrors(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name    string
		payload []byte
		want    string
	}{
		{
			name:    "experiment missing required fields",
			payload: sequencingPayload(payloadOpts{studyID: h.studyID, experiment: `{"libraryStrategy":"WGS"}`}),
			want:    "aligned",
		},
		{
			name:    "no files",
			payload: sequencingPayload(payloadOpts{studyID: h.studyID, omit: "files"}),
			want:    "files",
		},
		{
			name:    "no analysis type",
			payload: sequencingPayload(payloadOpts{studyID: h.studyID, omit: "analysisType"}),
			want:    "analysisType",
		},
		{
			name:    "unknown analysis type",
			payload: []byte(`{"studyId":"` + h.studyID + `","analysisType":{"name":"nope"}}`),
			want:    "nope",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := h.uploads.Upload(h.dbc, h.studyID, tc.payload, false)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if status.UploadState != types.UploadStateValidationError {
				t.Fatalf("state: want=%s got=%s", types.UploadStateValidationError, status.UploadState)
			}
			u, err := h.uploads.Status(h.dbc, h.studyID, status.UploadID)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			problems := uploadErrors(t, u)
			if len(problems) == 0 || !strings.Contains(strings.Join(problems, " "), tc.want) {
				t.Fatalf("errors should mention %q: %v", tc.want, problems)
			}
			_, err = h.uploads.Save(h.dbc, h.studyID, status.UploadID, false)
			wantCode(t, err, apierr.UploadIDNotValidated)
		})
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	_, err := h.uploads.Upload(h.dbc, "NOPE", sequencingPayload(payloadOpts{studyID: "NOPE"}), false)
	wantCode(t, err, apierr.StudyIDDoesNotExist)

	_, err = h.uploads.Upload(h.dbc, h.studyID, []byte(`[1,2]`), false)
	wantCode(t, err, apierr.PayloadParsing)

	_, err = h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{}), false)
	wantCode(t, err, apierr.StudyIDMissing)

	_, err = h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: "OTHER"}), false)
	wantCode(t, err, apierr.StudyIDMismatch)

	_, err = h.uploads.Status(h.dbc, h.studyID, "missing")
	wantCode(t, err, apierr.UploadIDNotFound)
}

func TestUploadReplacesSameAnalysisID(t *testing.T) {
	h := newHarness(t)
	first, err := h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: h.studyID, analysisID: "AN-up-1"}), false)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if first.Warning != "" {
		t.Fatalf("first upload should not warn: %q", first.Warning)
	}
	second, err := h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: h.studyID, analysisID: "AN-up-1", fileName: "other.bam"}), false)
	if err != nil {
		t.Fatalf("Upload again: %v", err)
	}
	if second.UploadID != first.UploadID {
		t.Fatalf("uploadId: want=%s got=%s", first.UploadID, second.UploadID)
	}
	if second.Warning == "" || second.UploadState != types.UploadStateValidated {
		t.Fatalf("replacement: got=%+v", second)
	}
	u, err := h.uploads.Status(h.dbc, h.studyID, second.UploadID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(u.Payload, "other.bam") {
		t.Fatalf("payload was not replaced")
	}
}

func TestUploadSaveDetectsCollisionAcrossStudies(t *testing.T) {
	h := newHarness(t)
	h.createAnalysis(t, payloadOpts{analysisID: "AN-shared"})

	other := h.newStudy(t)
	status, err := h.uploads.Upload(h.dbc, other, sequencingPayload(payloadOpts{studyID: other, analysisID: "AN-shared"}), false)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	_, err = h.uploads.Save(h.dbc, other, status.UploadID, false)
	wantCode(t, err, apierr.AnalysisIDCollision)

	u, err := h.uploads.Status(h.dbc, other, status.UploadID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if u.State != types.UploadStateValidated {
		t.Fatalf("failed save must leave the upload VALIDATED, got %s", u.State)
	}
}

func TestAsyncUploadIsDispatched(t *testing.T) {
	h := newHarness(t)
	status, err := h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: h.studyID}), true)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if status.UploadState != types.UploadStateCreated {
		t.Fatalf("state: want=CREATED got=%s", status.UploadState)
	}
	if len(h.dispatcher.ids) != 1 || h.dispatcher.ids[0] != status.UploadID {
		t.Fatalf("dispatched: got=%v", h.dispatcher.ids)
	}

	// running validation twice only moves the upload once
	for i := 0; i < 2; i++ {
		state, err := h.validation.ValidateUpload(h.dbc, status.UploadID)
		if err != nil {
			t.Fatalf("ValidateUpload #%d: %v", i, err)
		}
		if state != types.UploadStateValidated {
			t.Fatalf("ValidateUpload #%d: want=VALIDATED got=%s", i, state)
		}
	}
	_, err = h.validation.ValidateUpload(h.dbc, "missing")
	wantCode(t, err, apierr.UploadIDNotFound)
}

// replacingValidator replaces the upload's payload the first time it is asked
// to check a document, as a concurrent resubmission would.
type replacingValidator struct {
	jsonschema.Validator
	replace func()
	done    bool
}

func (v *replacingValidator) Validate(schema, doc []byte) ([]string, error) {
	if !v.done {
		v.done = true
		v.replace()
	}
	return v.Validator.Validate(schema, doc)
}

func TestResubmissionDuringValidationIsNotMarkedValid(t *testing.T) {
	h := newHarness(t)
	const analysisID = "AN-resubmit"
	status, err := h.uploads.Upload(h.dbc, h.studyID, sequencingPayload(payloadOpts{studyID: h.studyID, analysisID: analysisID}), true)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	invalid := sequencingPayload(payloadOpts{studyID: h.studyID, analysisID: analysisID, omit: "files"})
	validator := &replacingValidator{Validator: h.validator, replace: func() {
		if _, err := h.uploads.Upload(h.dbc, h.studyID, invalid, true); err != nil {
			t.Fatalf("resubmit: %v", err)
		}
	}}
	racing := NewValidationService(testutil.Logger(t), h.uploadRepo, h.types, validator, nil)

	state, err := racing.ValidateUpload(h.dbc, status.UploadID)
	if err != nil {
		t.Fatalf("ValidateUpload: %v", err)
	}
	if state != types.UploadStateCreated {
		t.Fatalf("stale result recorded: want=CREATED got=%s", state)
	}
	u, err := h.uploads.Status(h.dbc, h.studyID, status.UploadID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if u.State != types.UploadStateCreated || strings.Contains(u.Payload, "reads.bam") {
		t.Fatalf("after resubmission: state=%s payload=%s", u.State, u.Payload)
	}

	state, err = h.validation.ValidateUpload(h.dbc, status.UploadID)
	if err != nil {
		t.Fatalf("ValidateUpload replacement: %v", err)
	}
	if state != types.UploadStateValidationError {
		t.Fatalf("replacement: want=VALIDATION_ERROR got=%s", state)
	}
}
