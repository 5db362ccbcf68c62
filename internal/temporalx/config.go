package temporalx

import (
	"time"

	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	Backoff        time.Duration
	BackoffMax     time.Duration
	EnsureMaxWait  time.Duration
	WorkerMaxWait  time.Duration
	WorkerParallel int
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "songcatalog"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "songcatalog-validation"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),

		DialTimeout:    envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		DialMaxWait:    envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
		Backoff:        envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250),
		BackoffMax:     envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000),
		EnsureMaxWait:  envutil.Seconds("TEMPORAL_NAMESPACE_ENSURE_TIMEOUT_SECONDS", 10),
		WorkerMaxWait:  envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60),
		WorkerParallel: envutil.Int("VALIDATION_WORKERS", 4),
	}
}

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
