package uploadvalidation

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func Workflow(ctx workflow.Context, uploadID string) (Result, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return Result{}, fmt.Errorf("uploadvalidation: missing upload_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityValidate, uploadID).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("Upload validated", "upload_id", out.UploadID, "state", out.State)
	return out, nil
}
