package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type MessageEnvelope struct {
	Message string `json:"message"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err with the status and dotted id of its code.
// Errors without a code are logged and reported as unknown.error.
func RespondAPIError(c *gin.Context, log *logger.Logger, err error) {
	if ae, ok := apierr.As(err); ok {
		status := apierr.StatusOf(err)
		if status >= http.StatusInternalServerError && log != nil {
			log.Error("Request failed", "path", c.FullPath(), "code", ae.Code, "error", err)
		}
		RespondError(c, status, ae.ID(), err)
		return
	}
	if log != nil {
		log.Error("Unhandled error", "path", c.FullPath(), "error", err)
	}
	RespondError(c, http.StatusInternalServerError, apierr.UnknownError.ID(), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageEnvelope{Message: msg})
}
