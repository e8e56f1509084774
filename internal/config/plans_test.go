package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlanCatalogDefaults(t *testing.T) {
	catalog, err := config.LoadPlanCatalog("")
	require.NoError(t, err)

	free := catalog.Get(domain.PlanFree)
	assert.Equal(t, 10, free.RepliesPerDay)
	assert.False(t, free.Unlimited())

	unlimited := catalog.Get(domain.PlanUnlimited)
	assert.True(t, unlimited.Unlimited())
	assert.True(t, unlimited.StreamingChat)
}

func TestLoadPlanCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - id: free
    name: Free
    replies_per_day: 3
    max_ideas: 2
  - id: pro
    name: Pro
    replies_per_day: 50
    max_ideas: 20
    streaming_chat: true
`), 0o600))

	catalog, err := config.LoadPlanCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.Get(domain.PlanFree).RepliesPerDay)
	assert.True(t, catalog.Get(domain.PlanPro).StreamingChat)
}

func TestLoadPlanCatalogRequiresFreeTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - id: pro
    name: Pro
    replies_per_day: 50
    max_ideas: 20
`), 0o600))

	_, err := config.LoadPlanCatalog(path)
	assert.Error(t, err)
}

func TestPlanCatalogGetFallsBackToFree(t *testing.T) {
	catalog := config.DefaultPlanCatalog()
	plan := catalog.Get(domain.PlanID("legacy-tier"))
	assert.Equal(t, domain.PlanFree, plan.ID)
}
