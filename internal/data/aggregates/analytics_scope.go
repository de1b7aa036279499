package aggregates

import (
	"context"

	analyticsrepo "github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	domainagg "github.com/yungbote/tenantsearch-backend/internal/domain/aggregates"
)

type AnalyticsScopeAggregateDeps struct {
	Base BaseDeps

	Clusters   analyticsrepo.QueryClusterRepo
	TopQueries analyticsrepo.TopQueryRepo
}

type analyticsScopeAggregate struct {
	deps AnalyticsScopeAggregateDeps
}

func NewAnalyticsScopeAggregate(deps AnalyticsScopeAggregateDeps) domainagg.AnalyticsScopeAggregate {
	deps.Base = deps.Base.withDefaults()
	return &analyticsScopeAggregate{deps: deps}
}

func (a *analyticsScopeAggregate) Contract() domainagg.Contract {
	return domainagg.AnalyticsScopeAggregateContract
}

func (a *analyticsScopeAggregate) Replace(ctx context.Context, in domainagg.ReplaceAnalyticsScopeInput) (domainagg.ReplaceAnalyticsScopeResult, error) {
	const op = "Analytics.Scope.Replace"
	var out domainagg.ReplaceAnalyticsScopeResult
	if err := in.Scope.Validate(op); err != nil {
		return out, err
	}
	if a.deps.Clusters == nil || a.deps.TopQueries == nil {
		return out, domain.NewError(domain.CodeInternal, op, "analytics scope repos not configured", nil)
	}
	scope := in.Scope.Normalize()

	err := executeWrite(ctx, a.deps.Base, op, scope.TenantID, func(s *tenantdb.Scope) error {
		var res domainagg.ReplaceAnalyticsScopeResult
		var err error
		if res.DeletedClusters, err = a.deps.Clusters.FullDeleteByScope(s, scope); err != nil {
			return err
		}
		if res.DeletedTopQueries, err = a.deps.TopQueries.FullDeleteByScope(s, scope); err != nil {
			return err
		}
		if err := a.deps.Clusters.CreateBatch(s, scope, in.Clusters); err != nil {
			return err
		}
		if err := a.deps.TopQueries.CreateBatch(s, scope, in.TopQueries); err != nil {
			return err
		}
		res.InsertedClusters = len(in.Clusters)
		res.InsertedTopRows = len(in.TopQueries)
		out = res
		return nil
	})
	if err != nil {
		return domainagg.ReplaceAnalyticsScopeResult{}, err
	}
	return out, nil
}
