package storage

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// ObjectSpec is what the object store reports for a stored file.
// ObjectMD5 is empty when the store never recorded a checksum.
type ObjectSpec struct {
	ObjectID   string `json:"objectId,omitempty"`
	ObjectMD5  string `json:"objectMd5"`
	ObjectSize int64  `json:"objectSize"`
}

// Client answers whether file objects exist in the object store and what
// size and checksum it holds for them.
type Client interface {
	Exists(ctx context.Context, token, objectID string) (bool, error)
	DownloadSpec(ctx context.Context, token, objectID string) (*ObjectSpec, error)
	Driver() string
}

const (
	DriverScore = "score"
	DriverS3    = "s3"
	DriverGCS   = "gcs"
)

type Config struct {
	Driver      string
	URL         string
	AuthToken   string
	Bucket      string
	Prefix      string
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	PathStyle   bool
	Timeout     time.Duration
	MaxRetries  int
	Concurrency int
}

func ConfigFromEnv() Config {
	return Config{
		Driver:      strings.ToLower(envutil.String("STORAGE_DRIVER", DriverScore)),
		URL:         strings.TrimSpace(os.Getenv("STORAGE_URL")),
		AuthToken:   strings.TrimSpace(os.Getenv("STORAGE_AUTH_TOKEN")),
		Bucket:      strings.TrimSpace(os.Getenv("STORAGE_BUCKET")),
		Prefix:      strings.Trim(strings.TrimSpace(os.Getenv("STORAGE_PREFIX")), "/"),
		Region:      strings.TrimSpace(os.Getenv("STORAGE_S3_REGION")),
		Endpoint:    strings.TrimSpace(os.Getenv("STORAGE_S3_ENDPOINT")),
		AccessKey:   strings.TrimSpace(os.Getenv("STORAGE_S3_ACCESS_KEY_ID")),
		SecretKey:   strings.TrimSpace(os.Getenv("STORAGE_S3_SECRET_ACCESS_KEY")),
		PathStyle:   envutil.Bool("STORAGE_S3_PATH_STYLE", false),
		Timeout:     envutil.Seconds("STORAGE_TIMEOUT_SECONDS", 10),
		MaxRetries:  envutil.Int("STORAGE_MAX_RETRIES", 3),
		Concurrency: envutil.Int("STORAGE_CHECK_CONCURRENCY", 8),
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	return c
}

// New builds the client selected by cfg.Driver.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverScore:
		return NewScoreClient(log, cfg)
	case DriverS3:
		return NewS3Client(ctx, log, cfg)
	case DriverGCS:
		return NewGCSClient(ctx, log, cfg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
	}
}

var md5Pattern = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)

// checkSpec rejects download specs that could not describe a real object.
func checkSpec(objectID string, spec *ObjectSpec) error {
	if spec == nil {
		return apierr.E(apierr.InvalidStorageDownloadResponse, "empty download response for objectId '%s'", objectID)
	}
	var problems []string
	if spec.ObjectMD5 != "" && !md5Pattern.MatchString(spec.ObjectMD5) {
		problems = append(problems, fmt.Sprintf("objectMd5 '%s' is not a 32 character hex string", spec.ObjectMD5))
	}
	if spec.ObjectSize <= 0 {
		problems = append(problems, fmt.Sprintf("objectSize %d is not positive", spec.ObjectSize))
	}
	if len(problems) > 0 {
		return apierr.E(apierr.InvalidStorageDownloadResponse,
			"the storage download response for objectId '%s' is invalid: %s", objectID, strings.Join(problems, "; "))
	}
	return nil
}

func objectKey(prefix, objectID string) string {
	if prefix == "" {
		return objectID
	}
	return prefix + "/" + objectID
}
