package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/httpx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// scoreClient talks to a score-style object storage server:
//
//	GET {url}/upload/{objectId}                      -> "true" | "false"
//	GET {url}/download/{objectId}?offset=0&length=-1 -> {"objectMd5": ..., "objectSize": ...}
type scoreClient struct {
	log        *logger.Logger
	cfg        Config
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

func NewScoreClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing STORAGE_URL")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	return &scoreClient{
		log:        log.With("client", "ScoreStorageClient"),
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{},
		backoff:    500 * time.Millisecond,
	}, nil
}

func (c *scoreClient) Driver() string { return DriverScore }

func (c *scoreClient) Exists(ctx context.Context, token, objectID string) (bool, error) {
	raw, status, err := c.do(ctx, "exists", token, "/upload/"+url.PathEscape(objectID))
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	v, perr := strconv.ParseBool(strings.TrimSpace(string(raw)))
	if perr != nil {
		return false, apierr.Wrap(apierr.StorageServiceError, perr, "unexpected existence response for objectId '%s'", objectID)
	}
	return v, nil
}

// DownloadSpec prefers the configured service token over the caller's.
func (c *scoreClient) DownloadSpec(ctx context.Context, token, objectID string) (*ObjectSpec, error) {
	if c.cfg.AuthToken != "" {
		token = c.cfg.AuthToken
	}
	raw, status, err := c.do(ctx, "download_spec", token, "/download/"+url.PathEscape(objectID)+"?offset=0&length=-1")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apierr.E(apierr.StorageObjectNotFound, "the object with objectId '%s' does not exist in the storage server", objectID)
	}
	var spec ObjectSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, apierr.Wrap(apierr.InvalidStorageDownloadResponse, err, "cannot decode download response for objectId '%s'", objectID)
	}
	spec.ObjectID = objectID
	if err := checkSpec(objectID, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 1000 {
		msg = msg[:1000] + "..."
	}
	return fmt.Sprintf("storage http %d: %s", e.StatusCode, msg)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

// do runs a GET with bounded retries. A 404 is returned as a status, not an
// error. Exhausted retries surface as STORAGE_SERVICE_ERROR.
func (c *scoreClient) do(ctx context.Context, op, token, path string) ([]byte, int, error) {
	ctx = ctxutil.Default(ctx)
	m := observability.Current()
	backoff := c.backoff
	start := time.Now()

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, apierr.Wrap(apierr.ServiceUnavailable, err, "storage %s aborted", op)
		}

		resp, raw, err := c.doOnce(ctx, token, path)
		if err == nil {
			m.ObserveStorageCall(DriverScore, op, "ok", time.Since(start))
			return raw, resp.StatusCode, nil
		}

		var he *httpError
		if errors.As(err, &he) {
			switch he.StatusCode {
			case http.StatusUnauthorized:
				m.ObserveStorageCall(DriverScore, op, "unauthorized", time.Since(start))
				return nil, he.StatusCode, apierr.Wrap(apierr.UnauthorizedToken, err, "storage rejected the access token")
			case http.StatusForbidden:
				m.ObserveStorageCall(DriverScore, op, "forbidden", time.Since(start))
				return nil, he.StatusCode, apierr.Wrap(apierr.ForbiddenToken, err, "storage denied access")
			}
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			m.ObserveStorageCall(DriverScore, op, "error", time.Since(start))
			return nil, 0, apierr.Wrap(apierr.StorageServiceError, err, "storage %s failed after %d attempt(s)", op, attempt+1)
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Storage request retrying",
			"op", op,
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		m.IncStorageRetry(DriverScore, op)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, 0, apierr.Wrap(apierr.ServiceUnavailable, err, "storage %s aborted", op)
		}
		backoff *= 2
	}

	return nil, 0, errors.New("unreachable retry loop")
}

func (c *scoreClient) doOnce(ctx context.Context, token, path string) (*http.Response, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	if t := strings.TrimSpace(token); t != "" {
		if !strings.HasPrefix(strings.ToLower(t), "bearer ") {
			t = "Bearer " + t
		}
		req.Header.Set("Authorization", t)
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp, raw, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
