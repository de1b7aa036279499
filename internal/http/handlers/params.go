package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
)

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return uuid.Nil, apierr.BadRequest("invalid_"+name, err)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// parseTime accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

// scopeFromQuery reads locale, period_start and period_end for the caller's
// tenant.
func scopeFromQuery(c *gin.Context) (domain.AnalyticsScope, error) {
	return buildScope(c, c.Query("locale"), c.Query("period_start"), c.Query("period_end"))
}

func buildScope(c *gin.Context, locale, start, end string) (domain.AnalyticsScope, error) {
	scope := domain.AnalyticsScope{TenantID: ctxutil.TenantID(c.Request.Context()), Locale: locale}
	var err error
	if scope.PeriodStart, err = parseTime(start); err != nil {
		return scope, apierr.BadRequest("invalid_period_start", errors.New("period_start must be RFC 3339 or YYYY-MM-DD"))
	}
	if scope.PeriodEnd, err = parseTime(end); err != nil {
		return scope, apierr.BadRequest("invalid_period_end", errors.New("period_end must be RFC 3339 or YYYY-MM-DD"))
	}
	return scope, nil
}

func actor(c *gin.Context) string {
	if ad := ctxutil.GetAuthData(c.Request.Context()); ad != nil && ad.Subject != "" {
		return ad.Subject
	}
	return "admin"
}
