package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFlagsParse(t *testing.T) {
	id := uuid.New()
	f := scopeFlags{tenant: id.String(), locale: "ja", from: "2026-03-01", to: "2026-04-01T00:00:00Z"}
	scope, err := f.scope()
	require.NoError(t, err)
	assert.Equal(t, id, scope.TenantID)
	assert.Equal(t, "ja", scope.Locale)
	assert.True(t, scope.PeriodStart.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, scope.PeriodEnd.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestScopeFlagsRejectBadInput(t *testing.T) {
	_, err := (&scopeFlags{tenant: uuid.Nil.String(), from: "2026-03-01", to: "2026-04-01"}).scope()
	assert.Error(t, err)
	_, err = (&scopeFlags{tenant: uuid.NewString(), from: "March", to: "2026-04-01"}).scope()
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"migrate", "rebuild", "top-queries", "clusters", "search", "tenants"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
