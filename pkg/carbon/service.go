package carbon

import (
	"context"
	"errors"
	"time"

	"github.com/GYB356/climabill-sub002/pkg/cloverly"
	"github.com/GYB356/climabill-sub002/pkg/models"
)

var (
	ErrSubjectRequired    = errors.New("carbon: subject id is required")
	ErrInvalidPeriod      = errors.New("carbon: period end must be after period start")
	ErrInvalidAmount      = errors.New("carbon: carbon amount must be positive")
	ErrInvalidProjectType = errors.New("carbon: unknown project type")
	ErrEstimateRequired   = errors.New("carbon: estimate id is required")
)

const defaultHistoryLimit = 10

// DataService is the carbon data capability. Reads are parameter-determined;
// TrackUsage and PurchaseOffset are writes.
type DataService interface {
	CalculateFootprint(input models.UsageInput) float64
	TrackUsage(ctx context.Context, userID string, input models.UsageInput, period models.Period, scope models.Scope) (*models.CarbonUsage, error)
	GetUsageForPeriod(ctx context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error)
	GetOffsetTotalForPeriod(ctx context.Context, userID string, start, end time.Time, organizationID string) (float64, error)
	EstimateOffsetCost(ctx context.Context, carbonInKg float64, projectType models.ProjectType) (*models.Estimate, error)
	PurchaseOffset(ctx context.Context, userID, estimateID, organizationID string) (*models.CarbonOffset, error)
	GetPurchaseHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error)
	GetUsageHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error)
	GetAvailableProjects(ctx context.Context, projectType models.ProjectType) ([]models.Project, error)
	GetFootprintSummary(ctx context.Context, userID, organizationID string) (*models.FootprintSummary, error)
}

// Repository persists usage and offset records.
type Repository interface {
	CreateUsage(ctx context.Context, usage *models.CarbonUsage) error
	FindUsage(ctx context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error)
	UpdateUsageOffset(ctx context.Context, id string, offsetKg, remainingKg float64) error
	ListUsage(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error)
	ListUsageSince(ctx context.Context, userID string, since time.Time, organizationID string) ([]models.CarbonUsage, error)
	CreateOffset(ctx context.Context, offset *models.CarbonOffset) error
	SumOffsets(ctx context.Context, userID string, start, end time.Time, organizationID string) (float64, error)
	ListOffsets(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error)
	CountOffsets(ctx context.Context, userID string, organizationID string) (int64, error)
}

// OffsetProvider prices and sells carbon offsets.
type OffsetProvider interface {
	Estimate(ctx context.Context, carbonInKg float64, projectType string) (*cloverly.Estimate, error)
	Purchase(ctx context.Context, estimateSlug string) (*cloverly.Purchase, error)
	ListProjects(ctx context.Context, projectType string) ([]cloverly.Project, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

// monthBounds returns the first and last day of t's calendar month in UTC.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}
