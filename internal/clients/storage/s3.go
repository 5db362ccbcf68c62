package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// s3Client resolves object ids to keys in a single bucket. The caller token
// is not forwarded; access comes from the AWS credential chain.
type s3Client struct {
	log    *logger.Logger
	cfg    Config
	client *s3.Client
}

func NewS3Client(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_BUCKET for s3 driver")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries + 1),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &s3Client{
		log:    log.With("client", "S3StorageClient"),
		cfg:    cfg,
		client: client,
	}, nil
}

func (c *s3Client) Driver() string { return DriverS3 }

func (c *s3Client) head(ctx context.Context, op, objectID string) (*s3.HeadObjectOutput, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()
	key := objectKey(c.cfg.Prefix, objectID)
	out, err := c.client.HeadObject(callCtx, &s3.HeadObjectInput{Bucket: &c.cfg.Bucket, Key: &key})
	m := observability.Current()
	if err != nil {
		var nf *s3types.NotFound
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			m.ObserveStorageCall(DriverS3, op, "ok", time.Since(start))
			return nil, false, nil
		}
		m.ObserveStorageCall(DriverS3, op, "error", time.Since(start))
		c.log.Warn("S3 head failed", "key", key, "error", err)
		return nil, false, apierr.Wrap(apierr.StorageServiceError, err, "s3 %s failed for objectId '%s'", op, objectID)
	}
	m.ObserveStorageCall(DriverS3, op, "ok", time.Since(start))
	return out, true, nil
}

func (c *s3Client) Exists(ctx context.Context, _ string, objectID string) (bool, error) {
	_, ok, err := c.head(ctx, "exists", objectID)
	return ok, err
}

// DownloadSpec reads the md5 from the "md5" user metadata or, for single part
// uploads, from the ETag. Multipart ETags are not checksums and leave it empty.
func (c *s3Client) DownloadSpec(ctx context.Context, _ string, objectID string) (*ObjectSpec, error) {
	out, ok, err := c.head(ctx, "download_spec", objectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.E(apierr.StorageObjectNotFound, "the object with objectId '%s' does not exist in bucket %s", objectID, c.cfg.Bucket)
	}
	spec := &ObjectSpec{ObjectID: objectID, ObjectSize: aws.ToInt64(out.ContentLength)}
	if v := strings.TrimSpace(out.Metadata["md5"]); v != "" {
		spec.ObjectMD5 = strings.ToLower(v)
	} else if etag := strings.Trim(aws.ToString(out.ETag), "\""); etag != "" && !strings.Contains(etag, "-") {
		spec.ObjectMD5 = strings.ToLower(etag)
	}
	if err := checkSpec(objectID, spec); err != nil {
		return nil, err
	}
	return spec, nil
}
