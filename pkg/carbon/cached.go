package carbon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/cache"
	"github.com/GYB356/climabill-sub002/pkg/models"
)

// CachedService wraps a DataService and serves its reads through a
// cache.Caller. Writes go straight to the wrapped service and, once they
// succeed, invalidate the subject's derived reads.
type CachedService struct {
	next        DataService
	caller      *cache.Caller
	invalidator cache.Invalidator
	policy      TTLPolicy
	logger      logrus.FieldLogger
}

var _ DataService = (*CachedService)(nil)

// NewCachedService creates the facade. A nil invalidator invalidates only the
// caller's own store.
func NewCachedService(next DataService, caller *cache.Caller, invalidator cache.Invalidator, policy TTLPolicy, logger logrus.FieldLogger) *CachedService {
	if invalidator == nil {
		invalidator = cache.NewLocalInvalidator(caller.Store())
	}
	return &CachedService{
		next:        next,
		caller:      caller,
		invalidator: invalidator,
		policy:      policy,
		logger:      logger,
	}
}

func (s *CachedService) CalculateFootprint(input models.UsageInput) float64 {
	return s.next.CalculateFootprint(input)
}

func (s *CachedService) TrackUsage(ctx context.Context, userID string, input models.UsageInput, period models.Period, scope models.Scope) (*models.CarbonUsage, error) {
	usage, err := s.next.TrackUsage(ctx, userID, input, period, scope)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID, NamespaceUsage, NamespaceUsageHistory, NamespaceSummary)
	return usage, nil
}

func (s *CachedService) GetUsageForPeriod(ctx context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error) {
	return cache.Call(ctx, s.caller, usageKey(userID, start, end, scope), s.policy.Usage,
		func(ctx context.Context) (*models.CarbonUsage, error) {
			return s.next.GetUsageForPeriod(ctx, userID, start, end, scope)
		})
}

func (s *CachedService) GetOffsetTotalForPeriod(ctx context.Context, userID string, start, end time.Time, organizationID string) (float64, error) {
	return cache.Call(ctx, s.caller, offsetTotalKey(userID, start, end, organizationID), s.policy.OffsetTotal,
		func(ctx context.Context) (float64, error) {
			return s.next.GetOffsetTotalForPeriod(ctx, userID, start, end, organizationID)
		})
}

func (s *CachedService) EstimateOffsetCost(ctx context.Context, carbonInKg float64, projectType models.ProjectType) (*models.Estimate, error) {
	return cache.Call(ctx, s.caller, estimateKey(carbonInKg, projectType), s.policy.Estimate,
		func(ctx context.Context) (*models.Estimate, error) {
			return s.next.EstimateOffsetCost(ctx, carbonInKg, projectType)
		})
}

func (s *CachedService) PurchaseOffset(ctx context.Context, userID, estimateID, organizationID string) (*models.CarbonOffset, error) {
	offset, err := s.next.PurchaseOffset(ctx, userID, estimateID, organizationID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID,
		NamespaceOffsetTotal, NamespacePurchaseHistory,
		NamespaceUsage, NamespaceUsageHistory, NamespaceSummary)
	return offset, nil
}

func (s *CachedService) GetPurchaseHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error) {
	limit = normalizeLimit(limit)
	return cache.Call(ctx, s.caller, purchaseHistoryKey(userID, limit, organizationID), s.policy.PurchaseHistory,
		func(ctx context.Context) ([]models.CarbonOffset, error) {
			return s.next.GetPurchaseHistory(ctx, userID, limit, organizationID)
		})
}

func (s *CachedService) GetUsageHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error) {
	limit = normalizeLimit(limit)
	return cache.Call(ctx, s.caller, usageHistoryKey(userID, limit, organizationID), s.policy.UsageHistory,
		func(ctx context.Context) ([]models.CarbonUsage, error) {
			return s.next.GetUsageHistory(ctx, userID, limit, organizationID)
		})
}

func (s *CachedService) GetAvailableProjects(ctx context.Context, projectType models.ProjectType) ([]models.Project, error) {
	return cache.Call(ctx, s.caller, projectsKey(projectType), s.policy.Projects,
		func(ctx context.Context) ([]models.Project, error) {
			return s.next.GetAvailableProjects(ctx, projectType)
		})
}

func (s *CachedService) GetFootprintSummary(ctx context.Context, userID, organizationID string) (*models.FootprintSummary, error) {
	return cache.Call(ctx, s.caller, summaryKey(userID, organizationID), s.policy.Summary,
		func(ctx context.Context) (*models.FootprintSummary, error) {
			return s.next.GetFootprintSummary(ctx, userID, organizationID)
		})
}

// invalidate drops every cached read of userID in the given namespaces. The
// write has already happened, so a failure here is logged rather than returned.
func (s *CachedService) invalidate(ctx context.Context, userID string, namespaces ...string) {
	if err := s.invalidator.Invalidate(ctx, subjectPrefixes(userID, namespaces...)...); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"namespaces": namespaces,
		}).Warn("failed to invalidate cached reads")
	}
}
