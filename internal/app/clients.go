package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/songcatalog-backend/internal/clients/kafka"
	"github.com/yungbote/songcatalog-backend/internal/clients/redis"
	"github.com/yungbote/songcatalog-backend/internal/clients/storage"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/platform/neo4jdb"
	"github.com/yungbote/songcatalog-backend/internal/temporalx"
)

type Clients struct {
	Storage  storage.Client
	EventBus redis.EventBus
	Kafka    *kafka.EventWriter
	Neo4j    *neo4jdb.Client
	Temporal temporalsdkclient.Client
}

// wireClients connects what cfg asks for. withStorage is false for commands
// that never publish.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config, withStorage bool) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	if withStorage {
		st, err := storage.New(ctx, log, cfg.Storage)
		if err != nil {
			return c, fmt.Errorf("init storage client: %w", err)
		}
		c.Storage = st
	}

	switch cfg.EventsDriver {
	case "", EventsNone:
	case EventsRedis:
		bus, err := redis.NewEventBus(log, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		c.EventBus = bus
	case EventsKafka:
		w, err := kafka.NewEventWriter(log, cfg.Kafka)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init kafka writer: %w", err)
		}
		c.Kafka = w
	default:
		return Clients{}, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.EventsDriver)
	}

	graph, err := neo4jdb.New(log, cfg.Neo4j)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	c.Neo4j = graph

	if cfg.Dispatch == DispatchTemporal {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		if tc == nil {
			c.Close()
			return Clients{}, fmt.Errorf("VALIDATION_DISPATCH=temporal requires TEMPORAL_ADDRESS")
		}
		c.Temporal = tc
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.EventBus != nil {
		_ = c.EventBus.Close()
	}
	if c.Kafka != nil {
		_ = c.Kafka.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Neo4j.Close(ctx)
	}
}
