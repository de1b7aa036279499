package response

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
)

const (
	// RebuildRetryAfter is the Retry-After hint sent with rebuild_in_progress.
	RebuildRetryAfter = 30 * time.Second
	// StatusClientClosedRequest follows the nginx convention for a caller
	// that went away mid-request.
	StatusClientClosedRequest = 499
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. Domain errors are mapped onto an
// HTTP status; an *apierr.Error passes through as-is.
func RespondError(c *gin.Context, err error) {
	ae := FromError(err)
	if ae.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(ae.RetryAfter/time.Second)))
	}
	msg := "unknown error"
	if ae.Status >= http.StatusInternalServerError {
		// Storage and internal causes are not echoed to callers.
		msg = http.StatusText(ae.Status)
	} else if ae.Err != nil {
		msg = ae.Err.Error()
	}
	env := ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code}}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		env.Error.TraceID = td.TraceID
	}
	c.AbortWithStatusJSON(ae.Status, env)
}

func FromError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	switch {
	case errors.Is(err, context.Canceled):
		return apierr.New(StatusClientClosedRequest, "canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusServiceUnavailable, string(domain.CodeRetryable), err)
	}
	code := domain.CodeOf(err)
	switch code {
	case domain.CodeIsolationViolation:
		return apierr.Forbidden(string(code), err)
	case domain.CodeDimensionMismatch, domain.CodeValidation:
		return apierr.BadRequest(string(code), err)
	case domain.CodeNotFound:
		return apierr.New(http.StatusNotFound, string(code), err)
	case domain.CodeRebuildInProgress:
		e := apierr.New(http.StatusConflict, string(code), err)
		e.RetryAfter = RebuildRetryAfter
		return e
	case domain.CodeConflict:
		return apierr.New(http.StatusConflict, string(code), err)
	case domain.CodePreconditionFailed:
		return apierr.New(http.StatusPreconditionFailed, string(code), err)
	case domain.CodeStorage, domain.CodeRetryable, domain.CodeProviderUnavailable:
		return apierr.New(http.StatusServiceUnavailable, string(code), err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
