package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GYB356/climabill-sub002/pkg/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository handles carbon usage and offset persistence
type Repository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewRepository(db *gorm.DB, logger logrus.FieldLogger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Usage operations
func (r *Repository) CreateUsage(ctx context.Context, usage *models.CarbonUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// FindUsage returns the usage record for exactly [start, end], or nil when
// none exists. Empty scope fields are not filtered on.
func (r *Repository) FindUsage(ctx context.Context, userID string, start, end time.Time, scope models.Scope) (*models.CarbonUsage, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ? AND period_end = ?", userID, start, end)
	if scope.OrganizationID != "" {
		q = q.Where("organization_id = ?", scope.OrganizationID)
	}
	if scope.DepartmentID != "" {
		q = q.Where("department_id = ?", scope.DepartmentID)
	}
	if scope.ProjectID != "" {
		q = q.Where("project_id = ?", scope.ProjectID)
	}

	var usage models.CarbonUsage
	if err := q.Take(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (r *Repository) UpdateUsageOffset(ctx context.Context, id string, offsetKg, remainingKg float64) error {
	result := r.db.WithContext(ctx).Model(&models.CarbonUsage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"offset_carbon_in_kg":    offsetKg,
			"remaining_carbon_in_kg": remainingKg,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("usage record %s not found", id)
	}
	return nil
}

func (r *Repository) ListUsage(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonUsage, error) {
	var usage []models.CarbonUsage
	err := r.subjectQuery(ctx, userID, organizationID).
		Order("period_start desc").
		Limit(limit).
		Find(&usage).Error
	return usage, err
}

func (r *Repository) ListUsageSince(ctx context.Context, userID string, since time.Time, organizationID string) ([]models.CarbonUsage, error) {
	var usage []models.CarbonUsage
	err := r.subjectQuery(ctx, userID, organizationID).
		Where("period_start >= ?", since).
		Order("period_start asc").
		Find(&usage).Error
	return usage, err
}

// Offset operations
func (r *Repository) CreateOffset(ctx context.Context, offset *models.CarbonOffset) error {
	if err := r.db.WithContext(ctx).Create(offset).Error; err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"offset_id":   offset.ID,
		"purchase_id": offset.PurchaseID,
	}).Debug("Stored carbon offset")
	return nil
}

// SumOffsets totals purchased kg with a purchase date in [start, end].
func (r *Repository) SumOffsets(ctx context.Context, userID string, start, end time.Time, organizationID string) (float64, error) {
	var total float64
	err := r.subjectQuery(ctx, userID, organizationID).
		Model(&models.CarbonOffset{}).
		Where("purchase_date >= ? AND purchase_date <= ?", start, end).
		Select("COALESCE(SUM(carbon_in_kg), 0)").
		Scan(&total).Error
	return total, err
}

func (r *Repository) ListOffsets(ctx context.Context, userID string, limit int, organizationID string) ([]models.CarbonOffset, error) {
	var offsets []models.CarbonOffset
	err := r.subjectQuery(ctx, userID, organizationID).
		Order("purchase_date desc").
		Limit(limit).
		Find(&offsets).Error
	return offsets, err
}

func (r *Repository) CountOffsets(ctx context.Context, userID string, organizationID string) (int64, error) {
	var count int64
	err := r.subjectQuery(ctx, userID, organizationID).
		Model(&models.CarbonOffset{}).
		Count(&count).Error
	return count, err
}

func (r *Repository) subjectQuery(ctx context.Context, userID, organizationID string) *gorm.DB {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if organizationID != "" {
		q = q.Where("organization_id = ?", organizationID)
	}
	return q
}
