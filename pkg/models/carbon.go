package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CarbonUsage is the footprint recorded for a subject over one period.
type CarbonUsage struct {
	ID                  string          `json:"id" gorm:"type:uuid;primary_key"`
	UserID              string          `json:"user_id" gorm:"not null;index:idx_usage_subject_period"`
	OrganizationID      string          `json:"organization_id,omitempty" gorm:"index"`
	DepartmentID        string          `json:"department_id,omitempty"`
	ProjectID           string          `json:"project_id,omitempty"`
	InvoiceCount        int             `json:"invoice_count"`
	EmailCount          int             `json:"email_count"`
	StorageGB           float64         `json:"storage_gb"`
	APICallCount        int             `json:"api_call_count"`
	CustomUsage         CustomUsageJSON `json:"custom_usage" gorm:"type:jsonb"`
	TotalCarbonInKg     float64         `json:"total_carbon_in_kg"`
	OffsetCarbonInKg    float64         `json:"offset_carbon_in_kg"`
	RemainingCarbonInKg float64         `json:"remaining_carbon_in_kg"`
	PeriodName          string          `json:"period_name,omitempty"`
	PeriodStart         time.Time       `json:"period_start" gorm:"not null;index:idx_usage_subject_period"`
	PeriodEnd           time.Time       `json:"period_end" gorm:"not null;index:idx_usage_subject_period"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (CarbonUsage) TableName() string {
	return "carbon_usage"
}

func (u *CarbonUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CustomUsage == nil {
		u.CustomUsage = CustomUsageJSON{}
	}
	return u.Validate()
}

func (u *CarbonUsage) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if !u.PeriodEnd.After(u.PeriodStart) {
		return fmt.Errorf("period end must be after period start")
	}
	return nil
}

// CarbonOffset is a completed (or attempted) offset purchase.
type CarbonOffset struct {
	ID              string         `json:"id" gorm:"type:uuid;primary_key"`
	UserID          string         `json:"user_id" gorm:"not null;index:idx_offset_subject_date"`
	OrganizationID  string         `json:"organization_id,omitempty" gorm:"index"`
	PurchaseID      string         `json:"purchase_id" gorm:"uniqueIndex"`
	EstimateID      string         `json:"estimate_id"`
	CarbonInKg      float64        `json:"carbon_in_kg"`
	CostInUSDCents  int64          `json:"cost_in_usd_cents"`
	ProjectType     ProjectType    `json:"project_type"`
	ProjectName     string         `json:"project_name"`
	ProjectLocation string         `json:"project_location"`
	ReceiptURL      string         `json:"receipt_url"`
	Certificates    pq.StringArray `json:"certificates" gorm:"type:text[]"`
	Status          PurchaseStatus `json:"status" gorm:"not null;default:'pending'"`
	PurchaseDate    time.Time      `json:"purchase_date" gorm:"not null;index:idx_offset_subject_date"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (CarbonOffset) TableName() string {
	return "carbon_offsets"
}

func (o *CarbonOffset) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = PurchasePending
	}
	return nil
}
