package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

type scopeFlags struct {
	tenant string
	locale string
	from   string
	to     string
}

func (f *scopeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "locale filter; empty matches all")
	cmd.Flags().StringVar(&f.from, "from", "", "period start, RFC 3339 or YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "period end, exclusive (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (f *scopeFlags) scope() (domain.AnalyticsScope, error) {
	tenantID, err := parseTenant(f.tenant)
	if err != nil {
		return domain.AnalyticsScope{}, err
	}
	start, err := parseTime(f.from)
	if err != nil {
		return domain.AnalyticsScope{}, fmt.Errorf("--from: %w", err)
	}
	end, err := parseTime(f.to)
	if err != nil {
		return domain.AnalyticsScope{}, fmt.Errorf("--to: %w", err)
	}
	return domain.AnalyticsScope{TenantID: tenantID, Locale: f.locale, PeriodStart: start, PeriodEnd: end}, nil
}

func parseTenant(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("--tenant must be a non-nil uuid")
	}
	return id, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
