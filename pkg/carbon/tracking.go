package carbon

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/cloverly"
	"github.com/GYB356/climabill-sub002/pkg/config"
	"github.com/GYB356/climabill-sub002/pkg/models"
)

// TrackingService computes footprints and records usage and offsets.
type TrackingService struct {
	repo     Repository
	provider OffsetProvider
	factors  config.EmissionFactors
	now      func() time.Time
	logger   logrus.FieldLogger
}

type TrackingOption func(*TrackingService)

func WithFactors(factors config.EmissionFactors) TrackingOption {
	return func(s *TrackingService) {
		s.factors = factors
	}
}

func WithNow(now func() time.Time) TrackingOption {
	return func(s *TrackingService) {
		s.now = now
	}
}

func NewTrackingService(repo Repository, provider OffsetProvider, logger logrus.FieldLogger, opts ...TrackingOption) *TrackingService {
	s := &TrackingService{
		repo:     repo,
		provider: provider,
		factors:  config.DefaultEmissionFactors(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ DataService = (*TrackingService)(nil)

func (s *TrackingService) CalculateFootprint(input models.UsageInput) float64 {
	total := float64(input.InvoiceCount)*s.factors.CarbonPerInvoice +
		float64(input.EmailCount)*s.factors.CarbonPerEmail +
		input.StorageGB*s.factors.CarbonPerGBStorage +
		float64(input.APICallCount)*s.factors.CarbonPerAPICall
	for _, item := range input.CustomUsage {
		total += item.CarbonInKg
	}
	return total
}

func (s *TrackingService) TrackUsage(ctx context.Context, userID string, input models.UsageInput, period models.Period, scope models.Scope) (*models.CarbonUsage, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}
	if !period.End.After(period.Start) {
		return nil, ErrInvalidPeriod
	}

	total := s.CalculateFootprint(input)

	offset, err := s.repo.SumOffsets(ctx, userID, period.Start, period.End, scope.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum offsets: %w", err)
	}

	usage := &models.CarbonUsage{
		UserID:              userID,
		OrganizationID:      scope.OrganizationID,
		DepartmentID:        scope.DepartmentID,
		ProjectID:           scope.ProjectID,
		InvoiceCount:        input.InvoiceCount,
		EmailCount:          input.EmailCount,
		StorageGB:           input.StorageGB,
		APICallCount:        input.APICallCount,
		CustomUsage:         models.CustomUsageJSON(input.CustomUsage),
		TotalCarbonInKg:     total,
		OffsetCarbonInKg:    offset,
		RemainingCarbonInKg: math.Max(0, total-offset),
		PeriodName:          period.Name,
		PeriodStart:         period.Start,
		PeriodEnd:           period.End,
	}

	if err := s.repo.CreateUsage(ctx, usage); err != nil {
		return nil, fmt.Errorf("failed to store usage: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"usage_id":     usage.ID,
		"carbon_in_kg": total,
	}).Debug("tracked carbon usage")

	return usage, nil
}

func (s *TrackingService) GetUsageForPeriod(ctx context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}
	usage, err := s.repo.FindUsage(ctx, userID, start, end, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return usage, nil
}

func (s *TrackingService) GetOffsetTotalForPeriod(ctx context.Context, userID string, start, end time.Time, organizationID string) (float64, error) {
	if userID == "" {
		return 0, ErrSubjectRequired
	}
	total, err := s.repo.SumOffsets(ctx, userID, start, end, organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum offsets: %w", err)
	}
	return total, nil
}

func (s *TrackingService) EstimateOffsetCost(ctx context.Context, carbonInKg float64, projectType models.ProjectType) (*models.Estimate, error) {
	if carbonInKg <= 0 {
		return nil, ErrInvalidAmount
	}
	if !projectType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProjectType, projectType)
	}

	estimate, err := s.provider.Estimate(ctx, carbonInKg, string(projectType))
	if err != nil {
		return nil, fmt.Errorf("failed to estimate offset cost: %w", err)
	}

	return toEstimate(estimate), nil
}

func (s *TrackingService) PurchaseOffset(ctx context.Context, userID, estimateID, organizationID string) (*models.CarbonOffset, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}
	if estimateID == "" {
		return nil, ErrEstimateRequired
	}

	purchase, err := s.provider.Purchase(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase offset: %w", err)
	}

	offset := &models.CarbonOffset{
		UserID:         userID,
		OrganizationID: organizationID,
		PurchaseID:     purchase.Slug,
		EstimateID:     estimateID,
		CarbonInKg:     purchase.CarbonInKg,
		CostInUSDCents: purchase.TotalCostInUSDCents,
		ReceiptURL:     purchase.ReceiptURL,
		Status:         purchaseStatus(purchase.State),
		PurchaseDate:   s.now().UTC(),
	}
	if offset.PurchaseID == "" {
		offset.PurchaseID = purchase.ID
	}
	if purchase.Offset != nil {
		offset.ProjectType = models.ProjectType(purchase.Offset.Type)
		offset.ProjectName = purchase.Offset.Name
		offset.ProjectLocation = purchase.Offset.Location.Country
	}
	if purchase.RenewableCertificateURL != "" {
		offset.Certificates = []string{purchase.RenewableCertificateURL}
	}

	if err := s.repo.CreateOffset(ctx, offset); err != nil {
		return nil, fmt.Errorf("failed to store offset: %w", err)
	}

	if offset.Status != models.PurchaseCompleted {
		return offset, nil
	}
	if err := s.applyOffsetToCurrentMonth(ctx, userID, organizationID, offset.CarbonInKg); err != nil {
		// The purchase already went through; the usage row catches up on the next TrackUsage.
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to apply offset to current usage")
	}

	return offset, nil
}

// purchaseStatus maps a Cloverly purchase state onto the stored status. A
// purchase call that succeeded without reporting a state is complete.
func purchaseStatus(state string) models.PurchaseStatus {
	switch strings.ToLower(state) {
	case "", "purchased", "retired", "completed":
		return models.PurchaseCompleted
	case "estimated", "pending", "processing":
		return models.PurchasePending
	case "refunded", "canceled", "cancelled":
		return models.PurchaseRefunded
	default:
		return models.PurchaseFailed
	}
}

func (s *TrackingService) applyOffsetToCurrentMonth(ctx context.Context, userID, organizationID string, carbonInKg float64) error {
	start, end := monthBounds(s.now())
	usage, err := s.repo.FindUsage(ctx, userID, start, end, models.Scope{OrganizationID: organizationID})
	if err != nil {
		return err
	}
	if usage == nil {
		return nil
	}

	offset := usage.OffsetCarbonInKg + carbonInKg
	remaining := math.Max(0, usage.TotalCarbonInKg-offset)
	return s.repo.UpdateUsageOffset(ctx, usage.ID, offset, remaining)
}

func (s *TrackingService) GetPurchaseHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}
	offsets, err := s.repo.ListOffsets(ctx, userID, normalizeLimit(limit), organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offsets: %w", err)
	}
	return offsets, nil
}

func (s *TrackingService) GetUsageHistory(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}
	usage, err := s.repo.ListUsage(ctx, userID, normalizeLimit(limit), organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	return usage, nil
}

func (s *TrackingService) GetAvailableProjects(ctx context.Context, projectType models.ProjectType) ([]models.Project, error) {
	if !projectType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProjectType, projectType)
	}

	projects, err := s.provider.ListProjects(ctx, string(projectType))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, models.Project{
			ID:          p.ID,
			Name:        p.Name,
			Type:        p.Type,
			Location:    p.Location.Country,
			Description: p.Description,
			Registry:    p.Registry,
			RegistryURL: p.RegistryURL,
		})
	}
	return out, nil
}

func (s *TrackingService) GetFootprintSummary(ctx context.Context, userID, organizationID string) (*models.FootprintSummary, error) {
	if userID == "" {
		return nil, ErrSubjectRequired
	}

	current, _ := monthBounds(s.now())
	since := current.AddDate(0, -11, 0)

	usage, err := s.repo.ListUsageSince(ctx, userID, since, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}

	purchases, err := s.repo.CountOffsets(ctx, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count offsets: %w", err)
	}

	return summarize(usage, purchases), nil
}

// summarize expects usage ordered by period start ascending.
func summarize(usage []models.CarbonUsage, purchases int64) *models.FootprintSummary {
	summary := &models.FootprintSummary{
		TotalOffsetPurchases: purchases,
		MonthlyTrend:         []models.MonthlyCarbon{},
	}

	index := make(map[string]int)
	for _, u := range usage {
		summary.TotalCarbonInKg += u.TotalCarbonInKg
		summary.OffsetCarbonInKg += u.OffsetCarbonInKg
		summary.RemainingCarbonInKg += u.RemainingCarbonInKg

		month := u.PeriodStart.UTC().Format("2006-01")
		i, ok := index[month]
		if !ok {
			i = len(summary.MonthlyTrend)
			index[month] = i
			summary.MonthlyTrend = append(summary.MonthlyTrend, models.MonthlyCarbon{Month: month})
		}
		summary.MonthlyTrend[i].TotalCarbonInKg += u.TotalCarbonInKg
		summary.MonthlyTrend[i].OffsetCarbonInKg += u.OffsetCarbonInKg
	}

	if summary.TotalCarbonInKg > 0 {
		summary.OffsetPercentage = summary.OffsetCarbonInKg / summary.TotalCarbonInKg * 100
	}

	return summary
}

func toEstimate(e *cloverly.Estimate) *models.Estimate {
	out := &models.Estimate{
		EstimateID:     e.Slug,
		CarbonInKg:     e.CarbonInKg,
		CostInUSDCents: e.TotalCostInUSDCents,
		FormattedCost:  e.PrettyCost,
	}
	if out.EstimateID == "" {
		out.EstimateID = e.ID
	}
	if out.FormattedCost == "" {
		out.FormattedCost = fmt.Sprintf("$%.2f", float64(e.TotalCostInUSDCents)/100)
	}
	if e.Offset != nil {
		out.ProjectType = e.Offset.Type
		out.ProjectName = e.Offset.Name
		out.ProjectLocation = e.Offset.Location.Country
	}
	return out
}
