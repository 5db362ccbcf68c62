package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

// ErrQueueFull is returned by Dispatch when the pool cannot take more work.
// The upload stays CREATED and the sweeper retries it.
var ErrQueueFull = errors.New("validation queue full")

// ErrStopped is returned by Dispatch after Stop.
var ErrStopped = errors.New("validation pool stopped")

type Config struct {
	Workers   int
	QueueSize int
}

func ConfigFromEnv() Config {
	return Config{
		Workers:   envutil.Int("VALIDATION_WORKERS", 4),
		QueueSize: envutil.Int("VALIDATION_QUEUE_SIZE", 256),
	}
}

// Pool validates uploads on a fixed set of goroutines.
type Pool struct {
	log        *logger.Logger
	validation services.ValidationService
	cfg        Config

	queue chan string
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(baseLog *logger.Logger, validation services.ValidationService, cfg Config) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Pool{
		log:        baseLog.With("component", "ValidationPool"),
		validation: validation,
		cfg:        cfg,
		queue:      make(chan string, cfg.QueueSize),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.log.Info("Starting validation worker pool", "workers", p.cfg.Workers, "queue", p.cfg.QueueSize)
	for i := 0; i < p.cfg.Workers; i++ {
		workerID := i + 1
		p.wg.Add(1)
		go p.runLoop(ctx, workerID)
	}
}

// Dispatch enqueues without blocking.
func (p *Pool) Dispatch(_ context.Context, uploadID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- uploadID:
		return nil
	default:
		return fmt.Errorf("%w: upload %s", ErrQueueFull, uploadID)
	}
}

// Stop refuses new work, drains what is queued and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Validation worker stopped", "worker_id", workerID)
			return
		case uploadID, ok := <-p.queue:
			if !ok {
				return
			}
			p.runOne(ctx, workerID, uploadID)
		}
	}
}

func (p *Pool) runOne(ctx context.Context, workerID int, uploadID string) {
	defer func() {
		if r := recover(); r != nil {
			// The upload stays CREATED; the sweeper picks it up again.
			p.log.Error("Validation panic", "worker_id", workerID, "upload_id", uploadID, "panic", r)
		}
	}()
	state, err := p.validation.ValidateUpload(dbctx.Context{Ctx: ctx}, uploadID)
	if err != nil {
		p.log.Warn("Validation failed", "worker_id", workerID, "upload_id", uploadID, "error", err)
		return
	}
	p.log.Debug("Validation finished", "worker_id", workerID, "upload_id", uploadID, "state", state)
}
