package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeStatusAndID(t *testing.T) {
	cases := []struct {
		code   Code
		status int
		id     string
	}{
		{StudyIDDoesNotExist, http.StatusNotFound, "study.id.does.not.exist"},
		{PayloadParsing, http.StatusUnprocessableEntity, "payload.parsing"},
		{MissingStorageObjects, http.StatusConflict, "missing.storage.objects"},
		{AnalysisMissingSamples, http.StatusInternalServerError, "analysis.missing.samples"},
		{StorageServiceError, http.StatusBadGateway, "storage.service.error"},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError, "something.new"},
	}
	for _, tc := range cases {
		if got := tc.code.Status(); got != tc.status {
			t.Fatalf("%s status: want=%d got=%d", tc.code, tc.status, got)
		}
		if got := tc.code.ID(); got != tc.id {
			t.Fatalf("%s id: want=%q got=%q", tc.code, tc.id, got)
		}
	}
}

func TestWrappedErrorsKeepTheirCode(t *testing.T) {
	base := E(DuplicateAnalysisAttempt, "analysis %q already exists", "AN1")
	wrapped := fmt.Errorf("create analysis: %w", base)

	if !Is(wrapped, DuplicateAnalysisAttempt) {
		t.Fatalf("expected wrapped error to keep its code, got %q", CodeOf(wrapped))
	}
	if got := StatusOf(wrapped); got != http.StatusConflict {
		t.Fatalf("status: want=%d got=%d", http.StatusConflict, got)
	}
	if StatusOf(errors.New("boom")) != http.StatusInternalServerError {
		t.Fatalf("plain errors should map to 500")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StorageServiceError, cause, "exists %s", "obj-1")
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.Error() != "exists obj-1: connection refused" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
