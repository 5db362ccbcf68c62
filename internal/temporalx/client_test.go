package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, time.Second},
	}
	for _, c := range cases {
		if got := clampBackoff(100*time.Millisecond, time.Second, c.attempt); got != c.want {
			t.Fatalf("attempt %d: want=%v got=%v", c.attempt, c.want, got)
		}
	}
	if got := clampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("default base: want=250ms got=%v", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("PermissionDenied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should retry")
	}
	if isRetryableRPC(errors.New("boom")) || isRetryableRPC(nil) {
		t.Fatalf("plain errors should not retry")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "uploads")
	cfg := LoadConfig()
	if cfg.Namespace != "songcatalog" || cfg.TaskQueue != "uploads" || cfg.Address != "" {
		t.Fatalf("got=%+v", cfg)
	}
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("tls without cert/key should fail")
	}
}
