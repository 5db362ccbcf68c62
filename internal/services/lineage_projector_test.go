package services

import (
	"context"
	"errors"
	"testing"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type stubReader struct {
	AnalysisService
	views map[string]*types.AnalysisView
}

func (s stubReader) UnsecuredDeepRead(_ dbctx.Context, id string) (*types.AnalysisView, error) {
	if v, ok := s.views[id]; ok {
		return v, nil
	}
	return nil, apierr.E(apierr.AnalysisIDNotFound, "the analysisId '%s' was not found", id)
}

type sliceSource []types.AnalysisEvent

func (s sliceSource) Subscribe(_ context.Context, onEvent func(ev types.AnalysisEvent)) error {
	for _, ev := range s {
		onEvent(ev)
	}
	return nil
}

func TestLineageProjectorWritesCommittedView(t *testing.T) {
	reader := stubReader{views: map[string]*types.AnalysisView{
		"AN1": {AnalysisID: "AN1", StudyID: "ST1", AnalysisState: types.AnalysisStatePublished},
	}}
	var written []string
	p := NewLineageProjectorWithWriter(logger.Nop(), reader, func(_ context.Context, v *types.AnalysisView) error {
		written = append(written, v.AnalysisID+":"+string(v.AnalysisState))
		return nil
	})

	// the event carries a stale state; the stored view wins
	if err := p.Publish(context.Background(), types.AnalysisEvent{AnalysisID: "AN1", State: types.AnalysisStateUnpublished}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(written) != 1 || written[0] != "AN1:PUBLISHED" {
		t.Fatalf("written: got=%v", written)
	}

	err := p.Project(context.Background(), types.AnalysisEvent{AnalysisID: "missing"})
	if apierr.CodeOf(err) != apierr.AnalysisIDNotFound {
		t.Fatalf("want=%s got=%v", apierr.AnalysisIDNotFound, err)
	}
}

func TestLineageProjectorRunSurvivesFailures(t *testing.T) {
	reader := stubReader{views: map[string]*types.AnalysisView{
		"AN1": {AnalysisID: "AN1"},
		"AN2": {AnalysisID: "AN2"},
	}}
	var written []string
	p := NewLineageProjectorWithWriter(logger.Nop(), reader, func(_ context.Context, v *types.AnalysisView) error {
		if v.AnalysisID == "AN1" {
			return errors.New("graph down")
		}
		written = append(written, v.AnalysisID)
		return nil
	})
	src := sliceSource{{AnalysisID: "AN1"}, {AnalysisID: "gone"}, {AnalysisID: "AN2"}}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(written) != 1 || written[0] != "AN2" {
		t.Fatalf("written: want=[AN2] got=%v", written)
	}
}
