package app

import (
	"context"
	"errors"
	"testing"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VALIDATION_DISPATCH", "")
	t.Setenv("EVENTS_DRIVER", "Redis")
	t.Setenv("ANALYSIS_TYPE_ENFORCE_LATEST", "true")
	cfg := LoadConfig()
	if cfg.Dispatch != DispatchInline {
		t.Fatalf("dispatch: want=%s got=%s", DispatchInline, cfg.Dispatch)
	}
	if cfg.EventsDriver != EventsRedis {
		t.Fatalf("events: want=%s got=%s", EventsRedis, cfg.EventsDriver)
	}
	if !cfg.EnforceLatest || cfg.SeedFile != "builtin" || cfg.HTTP.Addr == "" {
		t.Fatalf("got=%+v", cfg)
	}
}

type countingPublisher struct{ n int }

func (c *countingPublisher) Publish(context.Context, types.AnalysisEvent) error {
	c.n++
	return errors.New("sink down")
}

func TestDeferredPublisher(t *testing.T) {
	d := &deferredPublisher{}
	if err := d.Publish(context.Background(), types.AnalysisEvent{}); err != nil {
		t.Fatalf("unset publisher should drop events: %v", err)
	}
	c := &countingPublisher{}
	d.set(c)
	if err := d.Publish(context.Background(), types.AnalysisEvent{}); err == nil || c.n != 1 {
		t.Fatalf("want forwarded error, got err=%v n=%d", err, c.n)
	}
}

func TestEventPublisherSelection(t *testing.T) {
	if _, driver := eventPublisher(Clients{}); driver != EventsNone {
		t.Fatalf("want=%s got=%s", EventsNone, driver)
	}
}
