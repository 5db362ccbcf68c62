package app

import (
	"context"
	"sync/atomic"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

// deferredPublisher forwards to a publisher installed after construction.
type deferredPublisher struct {
	target atomic.Value
}

type publisherBox struct{ p services.EventPublisher }

func (d *deferredPublisher) set(p services.EventPublisher) {
	d.target.Store(publisherBox{p: p})
}

func (d *deferredPublisher) Publish(ctx context.Context, ev types.AnalysisEvent) error {
	box, ok := d.target.Load().(publisherBox)
	if !ok || box.p == nil {
		return nil
	}
	return box.p.Publish(ctx, ev)
}
