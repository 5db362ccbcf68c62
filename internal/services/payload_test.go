package services

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
)

func TestDecodePayloadSplitsData(t *testing.T) {
	p, err := DecodePayload([]byte(`{
		"analysisId": " AN1 ",
		"studyId": "ST1",
		"analysisType": {"name": "variantCall", "version": 2},
		"samples": [{"submitterSampleId": "s1"}],
		"files": [{"fileName": "a.vcf"}],
		"info": {"k": "v"},
		"analysisState": "PUBLISHED",
		"experiment": {"variantCallingTool": "gatk"},
		"extra": 1
	}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.AnalysisID != "AN1" || p.StudyID != "ST1" {
		t.Fatalf("ids: got=%q/%q", p.AnalysisID, p.StudyID)
	}
	if p.AnalysisType.Name != "variantCall" || p.AnalysisType.Version == nil || *p.AnalysisType.Version != 2 {
		t.Fatalf("analysisType: got=%+v", p.AnalysisType)
	}
	if len(p.Samples) != 1 || len(p.Files) != 1 || len(p.Info) == 0 {
		t.Fatalf("structural parts missing: %+v", p)
	}
	if len(p.Data) != 2 {
		t.Fatalf("data: want=[experiment extra] got=%v", p.Data)
	}
	if _, ok := p.Data["analysisState"]; ok {
		t.Fatalf("reserved keys must not reach data")
	}
}

func TestDecodePayloadRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{``, `[]`, `"x"`, `{"a":`} {
		_, err := DecodePayload([]byte(raw))
		if apierr.CodeOf(err) != apierr.PayloadParsing {
			t.Fatalf("%q: want=%s got=%v", raw, apierr.PayloadParsing, err)
		}
	}
}

func TestPeekStudyID(t *testing.T) {
	id, ok, err := peekStudyID([]byte(`{"studyId":" ST1 "}`))
	if err != nil || !ok || id != "ST1" {
		t.Fatalf("got id=%q ok=%v err=%v", id, ok, err)
	}
	if _, ok, err := peekStudyID([]byte(`{"studyId":null}`)); err != nil || ok {
		t.Fatalf("null studyId: ok=%v err=%v", ok, err)
	}
	if _, _, err := peekStudyID([]byte(`{"studyId":5}`)); apierr.CodeOf(err) != apierr.PayloadParsing {
		t.Fatalf("numeric studyId: want=%s got=%v", apierr.PayloadParsing, err)
	}
}

func TestExperimentRegistry(t *testing.T) {
	reg := DefaultExperimentRegistry()
	if names := reg.Names(); len(names) != 2 || names[0] != "sequencingRead" {
		t.Fatalf("names: got=%v", names)
	}
	data := map[string]json.RawMessage{"experiment": json.RawMessage(`{"variantCallingTool":"gatk","matchedNormalSampleSubmitterId":"n1"}`)}
	if _, known, err := reg.Decode("variantCall", data); err != nil || !known {
		t.Fatalf("variantCall: known=%v err=%v", known, err)
	}
	if _, known, err := reg.Decode("sequencingRead", data); err == nil || !known {
		t.Fatalf("sequencingRead with variant data should fail: known=%v err=%v", known, err)
	}
	if _, known, err := reg.Decode("custom", nil); err != nil || known {
		t.Fatalf("unknown types are schema-only: known=%v err=%v", known, err)
	}
	if _, _, err := reg.Decode("variantCall", map[string]json.RawMessage{}); err == nil {
		t.Fatalf("missing experiment should fail")
	}
}
