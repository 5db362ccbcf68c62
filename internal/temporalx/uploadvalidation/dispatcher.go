package uploadvalidation

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// Dispatcher starts one workflow per upload. The workflow id is derived from
// the upload id, so a second dispatch while one is running is a no-op.
type Dispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(baseLog *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Dispatcher{
		log:       baseLog.With("component", "TemporalValidationDispatcher"),
		tc:        tc,
		taskQueue: taskQueue,
	}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, uploadID string) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(uploadID),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, WorkflowName, uploadID)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start validation workflow for upload %s: %w", uploadID, err)
	}
	d.log.Debug("Validation workflow started", "upload_id", uploadID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
