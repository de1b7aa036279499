package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// Probe and scrape routes only log at debug so they do not drown search traffic.
var quietRoutes = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// AttachTraceContext stamps a request id and trace id on the request context
// and echoes both as response headers. An inbound OTel span wins over a
// client-supplied trace header.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			RequestID: headerOrNew(c, HeaderRequestID),
			TraceID:   traceIDFor(c),
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(HeaderTraceID, td.TraceID)
		c.Header(HeaderRequestID, td.RequestID)
		c.Next()
	}
}

func traceIDFor(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return headerOrNew(c, HeaderTraceID)
}

func headerOrNew(c *gin.Context, name string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return uuid.NewString()
}

// RequestLogger emits one entry per request after the handler chain runs.
// Level follows the status class.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := append(requestFields(c), "method", c.Request.Method, "route", route, "status", status, "duration_ms", time.Since(start).Milliseconds())
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		case quietRoutes[route]:
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

func requestFields(c *gin.Context) []any {
	var kv []any
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
	}
	if ad := ctxutil.GetAuthData(ctx); ad != nil {
		if ad.TenantID != uuid.Nil {
			kv = append(kv, "tenant_id", ad.TenantID.String())
		}
		if ad.Subject != "" {
			kv = append(kv, "subject", ad.Subject)
		}
	}
	return kv
}
