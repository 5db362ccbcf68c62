package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
	"github.com/yungbote/songcatalog-backend/internal/temporalx"
	"github.com/yungbote/songcatalog-backend/internal/temporalx/uploadvalidation"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Runner polls the validation task queue.
type Runner struct {
	log        *logger.Logger
	cfg        temporalx.Config
	tc         temporalsdkclient.Client
	validation services.ValidationService
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, validation services.ValidationService) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if validation == nil {
		return nil, fmt.Errorf("temporal worker missing validation service")
	}
	return &Runner{
		log:        log.With("component", "TemporalWorker"),
		cfg:        cfg,
		tc:         tc,
		validation: validation,
	}, nil
}

// Start keeps trying to start the worker until WorkerMaxWait, then leaves it
// polling until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	deadline := time.Now().Add(cfg.WorkerMaxWait)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		missingNamespace := errors.As(startErr, &nfe)
		if missingNamespace && cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
		}
		if cfg.WorkerMaxWait <= 0 || time.Now().After(deadline) {
			if missingNamespace {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(backoff(cfg, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerParallel
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &uploadvalidation.Activities{Log: r.log, Validation: r.validation}
	w.RegisterWorkflowWithOptions(uploadvalidation.Workflow, workflow.RegisterOptions{Name: uploadvalidation.WorkflowName})
	w.RegisterActivityWithOptions(acts.Validate, activity.RegisterOptions{Name: uploadvalidation.ActivityValidate})
	return w
}

func backoff(cfg temporalx.Config, attempt int) time.Duration {
	sleep := cfg.Backoff
	if sleep <= 0 {
		sleep = 250 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if cfg.BackoffMax > 0 && sleep >= cfg.BackoffMax {
			return cfg.BackoffMax
		}
	}
	return sleep
}
