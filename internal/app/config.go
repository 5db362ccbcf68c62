package app

import (
	"strings"

	"github.com/yungbote/songcatalog-backend/internal/clients/kafka"
	"github.com/yungbote/songcatalog-backend/internal/clients/redis"
	"github.com/yungbote/songcatalog-backend/internal/clients/storage"
	"github.com/yungbote/songcatalog-backend/internal/data/db"
	apphttp "github.com/yungbote/songcatalog-backend/internal/http"
	httpMW "github.com/yungbote/songcatalog-backend/internal/http/middleware"
	"github.com/yungbote/songcatalog-backend/internal/jobs/validation"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/neo4jdb"
	"github.com/yungbote/songcatalog-backend/internal/temporalx"
)

const (
	DispatchInline   = "inline"
	DispatchTemporal = "temporal"

	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

type Config struct {
	LogMode     string
	ServiceName string
	Environment string
	Version     string

	HTTP     apphttp.ServerConfig
	Auth     httpMW.AuthConfig
	Postgres db.PostgresConfig

	AutoMigrate   bool
	EnforceLatest bool
	SeedFile      string

	Storage storage.Config

	Dispatch string
	Pool     validation.Config
	Sweeper  validation.SweeperConfig
	Temporal temporalx.Config

	EventsDriver string
	Redis        redis.Config
	Kafka        kafka.Config
	Neo4j        neo4jdb.Config
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "songcatalog"),
		Environment: envutil.String("ENVIRONMENT", "local"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),

		HTTP:     apphttp.ServerConfigFromEnv(),
		Auth:     httpMW.AuthConfigFromEnv(),
		Postgres: db.PostgresConfigFromEnv(),

		AutoMigrate:   envutil.Bool("POSTGRES_AUTO_MIGRATE", true),
		EnforceLatest: envutil.Bool("ANALYSIS_TYPE_ENFORCE_LATEST", false),
		SeedFile:      envutil.String("ANALYSIS_TYPE_SEED_FILE", "builtin"),

		Storage: storage.ConfigFromEnv(),

		Dispatch: strings.ToLower(envutil.String("VALIDATION_DISPATCH", DispatchInline)),
		Pool:     validation.ConfigFromEnv(),
		Sweeper:  validation.SweeperConfigFromEnv(),
		Temporal: temporalx.LoadConfig(),

		EventsDriver: strings.ToLower(envutil.String("EVENTS_DRIVER", EventsNone)),
		Redis:        redis.ConfigFromEnv(),
		Kafka:        kafka.ConfigFromEnv(),
		Neo4j:        neo4jdb.ConfigFromEnv(),
	}
}
