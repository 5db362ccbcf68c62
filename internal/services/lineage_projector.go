package services

import (
	"context"

	"github.com/yungbote/songcatalog-backend/internal/data/graph"
	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/platform/neo4jdb"
)

// LineageWriter stores one analysis projection.
type LineageWriter func(ctx context.Context, v *types.AnalysisView) error

// EventSource delivers analysis events until ctx ends.
type EventSource interface {
	Subscribe(ctx context.Context, onEvent func(ev types.AnalysisEvent)) error
}

// LineageProjector keeps a study -> donor -> specimen -> sample <- analysis
// -> file graph in step with the catalog. It reads the committed analysis on
// every event, so replays and out-of-order delivery converge.
type LineageProjector struct {
	log      *logger.Logger
	analyses AnalysisService
	write    LineageWriter
}

func NewLineageProjector(baseLog *logger.Logger, analyses AnalysisService, client *neo4jdb.Client) *LineageProjector {
	log := baseLog.With("service", "LineageProjector")
	return NewLineageProjectorWithWriter(baseLog, analyses, func(ctx context.Context, v *types.AnalysisView) error {
		return graph.UpsertAnalysisLineage(ctx, client, log, v)
	})
}

func NewLineageProjectorWithWriter(baseLog *logger.Logger, analyses AnalysisService, write LineageWriter) *LineageProjector {
	return &LineageProjector{
		log:      baseLog.With("service", "LineageProjector"),
		analyses: analyses,
		write:    write,
	}
}

// Publish lets the projector sit directly behind an EventPublisher when no
// bus is configured.
func (p *LineageProjector) Publish(ctx context.Context, ev types.AnalysisEvent) error {
	return p.Project(ctx, ev)
}

func (p *LineageProjector) Project(ctx context.Context, ev types.AnalysisEvent) error {
	ctx = ctxutil.Default(ctx)
	v, err := p.analyses.UnsecuredDeepRead(dbctx.Context{Ctx: ctx}, ev.AnalysisID)
	if err != nil {
		return err
	}
	if err := p.write(ctx, v); err != nil {
		return err
	}
	p.log.Debug("Projected analysis lineage",
		"analysis_id", ev.AnalysisID,
		"action", ev.Action,
		"samples", len(v.Samples),
		"files", len(v.Files),
	)
	return nil
}

// Run consumes src until ctx is done. Projection failures are logged and the
// next event for the same analysis repairs the graph.
func (p *LineageProjector) Run(ctx context.Context, src EventSource) error {
	p.log.Info("Lineage projector subscribed")
	return src.Subscribe(ctx, func(ev types.AnalysisEvent) {
		if err := p.Project(ctx, ev); err != nil {
			p.log.Warn("Lineage projection failed", "analysis_id", ev.AnalysisID, "action", ev.Action, "error", err)
		}
	})
}
