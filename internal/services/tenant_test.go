package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestTenantCreateAndListWithStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acme, err := h.tenants.Create(ctx, "ops@example.com", " ACME ", "")
	require.NoError(t, err)
	assert.Equal(t, "acme", acme.Slug)
	assert.Equal(t, "acme", acme.Name)

	h.ingest(t, acme.ID, "Returns", "Returns are accepted within thirty days.")
	_, err = h.search.Search(ctx, acme.ID, "returns", 5)
	require.NoError(t, err)

	stats, err := h.tenants.ListWithStats(ctx, "ops@example.com")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, acme.ID, stats[0].Tenant.ID)
	assert.EqualValues(t, 1, stats[0].Documents)
	assert.EqualValues(t, 1, stats[0].Passages)
	assert.EqualValues(t, 1, stats[0].QueryRecords)
}

func TestTenantOperationsRequireActor(t *testing.T) {
	h := newHarness(t)
	_, err := h.tenants.Create(context.Background(), "", "acme", "Acme")
	assert.True(t, domain.IsCode(err, domain.CodeIsolationViolation))

	_, err = h.tenants.ListWithStats(context.Background(), "")
	assert.True(t, domain.IsCode(err, domain.CodeIsolationViolation))

	_, err = h.tenants.Create(context.Background(), "ops", " ", "Acme")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}
