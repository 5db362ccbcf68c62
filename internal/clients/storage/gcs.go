package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type gcsClient struct {
	log    *logger.Logger
	cfg    Config
	client *gcs.Client
}

func NewGCSClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_BUCKET for gcs driver")
	}
	opts := gcsOptionsFromEnv()
	opts = append(opts, option.WithScopes(gcs.ScopeReadOnly))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsClient{
		log:    log.With("client", "GCSStorageClient"),
		cfg:    cfg,
		client: client,
	}, nil
}

// gcsOptionsFromEnv accepts either inline credentials JSON or a file path.
func gcsOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

func (c *gcsClient) Driver() string { return DriverGCS }

func (c *gcsClient) attrs(ctx context.Context, op, objectID string) (*gcs.ObjectAttrs, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()
	key := objectKey(c.cfg.Prefix, objectID)
	attrs, err := c.client.Bucket(c.cfg.Bucket).Object(key).Attrs(callCtx)
	m := observability.Current()
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			m.ObserveStorageCall(DriverGCS, op, "ok", time.Since(start))
			return nil, nil
		}
		m.ObserveStorageCall(DriverGCS, op, "error", time.Since(start))
		c.log.Warn("GCS attrs failed", "key", key, "error", err)
		return nil, apierr.Wrap(apierr.StorageServiceError, err, "gcs %s failed for objectId '%s'", op, objectID)
	}
	m.ObserveStorageCall(DriverGCS, op, "ok", time.Since(start))
	return attrs, nil
}

func (c *gcsClient) Exists(ctx context.Context, _ string, objectID string) (bool, error) {
	attrs, err := c.attrs(ctx, "exists", objectID)
	if err != nil {
		return false, err
	}
	return attrs != nil, nil
}

// DownloadSpec uses the object's MD5 attribute; composite objects carry none.
func (c *gcsClient) DownloadSpec(ctx context.Context, _ string, objectID string) (*ObjectSpec, error) {
	attrs, err := c.attrs(ctx, "download_spec", objectID)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, apierr.E(apierr.StorageObjectNotFound, "the object with objectId '%s' does not exist in bucket %s", objectID, c.cfg.Bucket)
	}
	spec := &ObjectSpec{ObjectID: objectID, ObjectSize: attrs.Size}
	if len(attrs.MD5) > 0 {
		spec.ObjectMD5 = hex.EncodeToString(attrs.MD5)
	}
	if err := checkSpec(objectID, spec); err != nil {
		return nil, err
	}
	return spec, nil
}
