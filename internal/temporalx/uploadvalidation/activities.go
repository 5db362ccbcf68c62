package uploadvalidation

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type Activities struct {
	Log        *logger.Logger
	Validation services.ValidationService
}

// Validate runs one validation pass. A missing upload is not retried; any
// other failure is, since the upload is still CREATED.
func (a *Activities) Validate(ctx context.Context, uploadID string) (Result, error) {
	res := Result{UploadID: strings.TrimSpace(uploadID)}
	if a == nil || a.Validation == nil {
		return res, fmt.Errorf("uploadvalidation: activity not configured")
	}
	if res.UploadID == "" {
		return res, temporal.NewNonRetryableApplicationError("missing upload_id", "invalid_argument", nil)
	}
	state, err := a.Validation.ValidateUpload(dbctx.Context{Ctx: ctx}, res.UploadID)
	if err != nil {
		if apierr.CodeOf(err) == apierr.UploadIDNotFound {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), string(apierr.UploadIDNotFound), err)
		}
		if a.Log != nil {
			a.Log.Warn("Upload validation attempt failed", "upload_id", res.UploadID, "error", err)
		}
		return res, err
	}
	res.State = state
	return res, nil
}
