package config

import (
	"fmt"
	"os"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// PlanCatalog maps plan IDs to their entitlements.
type PlanCatalog map[domain.PlanID]domain.Plan

// DefaultPlanCatalog returns the built-in plan tiers used when no catalog
// file is configured.
func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		domain.PlanFree: {
			ID:            domain.PlanFree,
			Name:          "Free",
			RepliesPerDay: 10,
			MaxIdeas:      5,
		},
		domain.PlanPro: {
			ID:            domain.PlanPro,
			Name:          "Pro",
			RepliesPerDay: 200,
			MaxIdeas:      100,
			StreamingChat: true,
		},
		domain.PlanUnlimited: {
			ID:            domain.PlanUnlimited,
			Name:          "Unlimited",
			RepliesPerDay: domain.Unbounded,
			MaxIdeas:      domain.Unbounded,
			StreamingChat: true,
		},
	}
}

type planCatalogFile struct {
	Plans []domain.Plan `yaml:"plans"`
}

// LoadPlanCatalog reads a YAML plan catalog. An empty path returns the
// built-in defaults.
func LoadPlanCatalog(path string) (PlanCatalog, error) {
	if path == "" {
		return DefaultPlanCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog: %v", err)
	}

	var file planCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %v", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog %s defines no plans", path)
	}

	catalog := make(PlanCatalog, len(file.Plans))
	for _, p := range file.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("plan catalog %s contains a plan without an id", path)
		}
		catalog[p.ID] = p
	}

	// The free tier must always exist: new signups land on it.
	if _, ok := catalog[domain.PlanFree]; !ok {
		return nil, fmt.Errorf("plan catalog %s is missing the %q plan", path, domain.PlanFree)
	}

	return catalog, nil
}

// Get returns the plan for id, falling back to the free tier for unknown ids.
func (c PlanCatalog) Get(id domain.PlanID) domain.Plan {
	if p, ok := c[id]; ok {
		return p
	}
	return c[domain.PlanFree]
}
