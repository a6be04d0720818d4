package carbon

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/GYB356/climabill-sub002/pkg/cache"
	"github.com/GYB356/climabill-sub002/pkg/models"
)

// Cache namespaces, one per cached read.
const (
	NamespaceUsage           = "carbon-usage"
	NamespaceOffsetTotal     = "carbon-offset"
	NamespaceEstimate        = "carbon-estimate"
	NamespacePurchaseHistory = "offset-history"
	NamespaceUsageHistory    = "usage-history"
	NamespaceProjects        = "offset-projects"
	NamespaceSummary         = "carbon-summary"
)

const (
	noOrganization = "no-org"
	noDepartment   = "no-dept"
	noProject      = "no-proj"
	anyProjectType = "any"
)

// TTLPolicy is how long each cached read stays fresh. A non-positive TTL
// disables caching for that read.
type TTLPolicy struct {
	Usage           time.Duration `mapstructure:"usage"`
	OffsetTotal     time.Duration `mapstructure:"offset"`
	Estimate        time.Duration `mapstructure:"estimate"`
	PurchaseHistory time.Duration `mapstructure:"purchase_history"`
	UsageHistory    time.Duration `mapstructure:"usage_history"`
	Projects        time.Duration `mapstructure:"projects"`
	Summary         time.Duration `mapstructure:"summary"`
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Usage:           5 * time.Minute,
		OffsetTotal:     5 * time.Minute,
		Estimate:        2 * time.Minute,
		PurchaseHistory: 5 * time.Minute,
		UsageHistory:    5 * time.Minute,
		Projects:        10 * time.Minute,
		Summary:         5 * time.Minute,
	}
}

// WithOverrides returns a copy of p with the named TTLs replaced. Unknown
// names are an error.
func (p TTLPolicy) WithOverrides(overrides map[string]time.Duration) (TTLPolicy, error) {
	out := p
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return p, err
	}
	if err := decoder.Decode(overrides); err != nil {
		return p, fmt.Errorf("invalid cache ttl overrides: %w", err)
	}
	return out, nil
}

func usageKey(userID string, start, end time.Time, scope models.Scope) cache.Key {
	return cache.NewKey(NamespaceUsage).
		With(userID).
		Time(start).
		Time(end).
		Optional(scope.OrganizationID, noOrganization).
		Optional(scope.DepartmentID, noDepartment).
		Optional(scope.ProjectID, noProject)
}

func offsetTotalKey(userID string, start, end time.Time, organizationID string) cache.Key {
	return cache.NewKey(NamespaceOffsetTotal).
		With(userID).
		Time(start).
		Time(end).
		Optional(organizationID, noOrganization)
}

func estimateKey(carbonInKg float64, projectType models.ProjectType) cache.Key {
	return cache.NewKey(NamespaceEstimate).
		Float(carbonInKg).
		Optional(string(projectType), anyProjectType)
}

func purchaseHistoryKey(userID string, limit int, organizationID string) cache.Key {
	return cache.NewKey(NamespacePurchaseHistory).
		With(userID).
		Int(limit).
		Optional(organizationID, noOrganization)
}

func usageHistoryKey(userID string, limit int, organizationID string) cache.Key {
	return cache.NewKey(NamespaceUsageHistory).
		With(userID).
		Int(limit).
		Optional(organizationID, noOrganization)
}

func projectsKey(projectType models.ProjectType) cache.Key {
	return cache.NewKey(NamespaceProjects).Optional(string(projectType), anyProjectType)
}

func summaryKey(userID, organizationID string) cache.Key {
	return cache.NewKey(NamespaceSummary).
		With(userID).
		Optional(organizationID, noOrganization)
}

// subjectPrefixes are the per-subject key prefixes in each namespace.
func subjectPrefixes(userID string, namespaces ...string) []cache.Key {
	keys := make([]cache.Key, 0, len(namespaces))
	for _, ns := range namespaces {
		keys = append(keys, cache.NewKey(ns).With(userID))
	}
	return keys
}
