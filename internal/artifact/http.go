package artifact

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	projectdomain "github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

// WriteError replies with the status matching err.
func WriteError(c *gin.Context, op string, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError {
		logging.New(c.Request.Context()).Error(op, err)
	}
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

// Status maps err onto an HTTP status and a client safe message.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, projectdomain.ErrNotFound):
		return http.StatusNotFound, "project not found"
	case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrInvalid), errors.Is(err, projectdomain.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrUnprocessable):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, llm.ErrInvalidJSON), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, "model returned an unusable response"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "generation timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
