package carbon

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/cloverly"
	"github.com/GYB356/climabill-sub002/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

type usageUpdate struct {
	id        string
	offset    float64
	remaining float64
}

// memoryRepo is an in-memory Repository.
type memoryRepo struct {
	mu      sync.Mutex
	usage   []models.CarbonUsage
	offsets []models.CarbonOffset
	updates []usageUpdate
	err     error
}

func (r *memoryRepo) CreateUsage(_ context.Context, usage *models.CarbonUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if usage.ID == "" {
		usage.ID = fmt.Sprintf("usage-%d", len(r.usage)+1)
	}
	r.usage = append(r.usage, *usage)
	return nil
}

func (r *memoryRepo) FindUsage(_ context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.usage {
		if u.UserID != userID || !u.PeriodStart.Equal(start) || !u.PeriodEnd.Equal(end) {
			continue
		}
		if scope.OrganizationID != "" && u.OrganizationID != scope.OrganizationID {
			continue
		}
		if scope.DepartmentID != "" && u.DepartmentID != scope.DepartmentID {
			continue
		}
		if scope.ProjectID != "" && u.ProjectID != scope.ProjectID {
			continue
		}
		found := u
		return &found, nil
	}
	return nil, nil
}

func (r *memoryRepo) UpdateUsageOffset(_ context.Context, id string, offsetKg, remainingKg float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, usageUpdate{id: id, offset: offsetKg, remaining: remainingKg})
	for i := range r.usage {
		if r.usage[i].ID == id {
			r.usage[i].OffsetCarbonInKg = offsetKg
			r.usage[i].RemainingCarbonInKg = remainingKg
		}
	}
	return nil
}

func (r *memoryRepo) subjectUsage(userID, organizationID string) []models.CarbonUsage {
	var out []models.CarbonUsage
	for _, u := range r.usage {
		if u.UserID == userID && (organizationID == "" || u.OrganizationID == organizationID) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out
}

func (r *memoryRepo) ListUsage(_ context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	usage := r.subjectUsage(userID, organizationID)
	var out []models.CarbonUsage
	for i := len(usage) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, usage[i])
	}
	return out, nil
}

func (r *memoryRepo) ListUsageSince(_ context.Context, userID string, since time.Time, organizationID string) ([]models.CarbonUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CarbonUsage
	for _, u := range r.subjectUsage(userID, organizationID) {
		if !u.PeriodStart.Before(since) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateOffset(_ context.Context, offset *models.CarbonOffset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.offsets = append(r.offsets, *offset)
	return nil
}

func (r *memoryRepo) SumOffsets(_ context.Context, userID string, start, end time.Time, organizationID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var total float64
	for _, o := range r.offsets {
		if o.UserID != userID || (organizationID != "" && o.OrganizationID != organizationID) {
			continue
		}
		if o.PurchaseDate.Before(start) || o.PurchaseDate.After(end) {
			continue
		}
		total += o.CarbonInKg
	}
	return total, nil
}

func (r *memoryRepo) ListOffsets(_ context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CarbonOffset
	for i := len(r.offsets) - 1; i >= 0 && len(out) < limit; i-- {
		o := r.offsets[i]
		if o.UserID == userID && (organizationID == "" || o.OrganizationID == organizationID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryRepo) CountOffsets(_ context.Context, userID string, organizationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.offsets {
		if o.UserID == userID && (organizationID == "" || o.OrganizationID == organizationID) {
			n++
		}
	}
	return n, nil
}

// stubProvider prices every kilogram at 1.5 cents.
type stubProvider struct {
	mu        sync.Mutex
	purchases []string
	state     string
	err       error
}

func (p *stubProvider) Estimate(_ context.Context, carbonInKg float64, projectType string) (*cloverly.Estimate, error) {
	if p.err != nil {
		return nil, p.err
	}
	if projectType == "" {
		projectType = string(models.ProjectRenewableEnergy)
	}
	return &cloverly.Estimate{
		ID:                  "e1",
		Slug:                "est-slug",
		CarbonInKg:          carbonInKg,
		TotalCostInUSDCents: int64(carbonInKg * 1.5),
		Offset: &cloverly.Offset{
			Name:     "Wind Farm",
			Type:     projectType,
			Location: cloverly.ProjectLocation{Country: "USA"},
		},
	}, nil
}

func (p *stubProvider) Purchase(_ context.Context, estimateSlug string) (*cloverly.Purchase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.purchases = append(p.purchases, estimateSlug)
	state := p.state
	if state == "" {
		state = "purchased"
	}
	return &cloverly.Purchase{
		Estimate: cloverly.Estimate{
			ID:                  "pur-" + estimateSlug,
			Slug:                "pur-slug-" + estimateSlug,
			State:               state,
			CarbonInKg:          100,
			TotalCostInUSDCents: 1500,
			Offset: &cloverly.Offset{
				Name:     "Amazon Reforestation",
				Type:     string(models.ProjectForestry),
				Location: cloverly.ProjectLocation{Country: "Brazil"},
			},
		},
		ReceiptURL:              "https://receipts.example/" + estimateSlug,
		RenewableCertificateURL: "https://certs.example/" + estimateSlug,
	}, nil
}

func (p *stubProvider) ListProjects(_ context.Context, projectType string) ([]cloverly.Project, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []cloverly.Project{
		{ID: "p1", Name: "Wind Farm", Type: projectType, Location: cloverly.ProjectLocation{Country: "USA"}},
	}, nil
}
