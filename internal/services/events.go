package services

import (
	"context"
	"errors"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// EventPublisher delivers analysis events to whatever is listening
// downstream. Publishing never affects the outcome of the operation that
// produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev types.AnalysisEvent) error
}

type nopPublisher struct{}

func NewNopEventPublisher() EventPublisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, types.AnalysisEvent) error { return nil }

type multiPublisher struct {
	pubs []EventPublisher
}

// NewMultiEventPublisher fans out to every non-nil publisher.
func NewMultiEventPublisher(pubs ...EventPublisher) EventPublisher {
	out := make([]EventPublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nopPublisher{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return &multiPublisher{pubs: out}
}

func (m *multiPublisher) Publish(ctx context.Context, ev types.AnalysisEvent) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// eventEmitter publishes without letting failures escape; they are logged and
// counted.
type eventEmitter struct {
	log    *logger.Logger
	pub    EventPublisher
	driver string
}

func newEventEmitter(log *logger.Logger, pub EventPublisher, driver string) *eventEmitter {
	if pub == nil {
		pub = nopPublisher{}
	}
	if driver == "" {
		driver = "none"
	}
	return &eventEmitter{log: log, pub: pub, driver: driver}
}

func (e *eventEmitter) emit(ctx context.Context, evs ...types.AnalysisEvent) {
	m := observability.Current()
	ctx = context.WithoutCancel(ctxutil.Default(ctx))
	for _, ev := range evs {
		if err := e.pub.Publish(ctx, ev); err != nil {
			e.log.Warn("Analysis event publish failed",
				"analysis_id", ev.AnalysisID,
				"action", ev.Action,
				"error", err,
			)
			m.IncEvent(e.driver, "error")
			continue
		}
		m.IncEvent(e.driver, "ok")
	}
}
