package services

import (
	"context"
	"strings"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// TenantService runs the cross-tenant admin operations. Every call goes
// through a privileged, audit-logged scope.
type TenantService interface {
	Create(ctx context.Context, actor, slug, name string) (*domain.Tenant, error)
	ListWithStats(ctx context.Context, actor string) ([]repos.TenantStats, error)
}

type tenantService struct {
	log    *logger.Logger
	binder *tenantdb.Binder
	repos  repos.Set
}

func NewTenantService(baseLog *logger.Logger, binder *tenantdb.Binder, repoSet repos.Set) TenantService {
	return &tenantService{log: baseLog.With("service", "TenantService"), binder: binder, repos: repoSet}
}

func (s *tenantService) Create(ctx context.Context, actor, slug, name string) (*domain.Tenant, error) {
	const op = "TenantService.Create"
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, domain.Validation(op, "slug is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}
	var t *domain.Tenant
	err := s.binder.Privileged(ctx, actor, func(sc *tenantdb.Scope) error {
		var err error
		t, err = s.repos.Tenants.Create(sc, &domain.Tenant{Slug: slug, Name: name})
		return err
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorage, op, err)
	}
	return t, nil
}

func (s *tenantService) ListWithStats(ctx context.Context, actor string) ([]repos.TenantStats, error) {
	const op = "TenantService.ListWithStats"
	var out []repos.TenantStats
	err := s.binder.Privileged(ctx, actor, func(sc *tenantdb.Scope) error {
		var err error
		out, err = s.repos.Tenants.ListWithStats(sc)
		return err
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorage, op, err)
	}
	if out == nil {
		out = []repos.TenantStats{}
	}
	return out, nil
}
