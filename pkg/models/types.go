package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectType is the category of an offset project.
type ProjectType string

const (
	ProjectRenewableEnergy  ProjectType = "renewable_energy"
	ProjectForestry         ProjectType = "forestry"
	ProjectMethaneCapture   ProjectType = "methane_capture"
	ProjectEnergyEfficiency ProjectType = "energy_efficiency"
	ProjectWaterRestoration ProjectType = "water_restoration"
	ProjectCommunity        ProjectType = "community"
)

// Valid reports whether p is a known project type. The empty type means
// "any project" and is valid.
func (p ProjectType) Valid() bool {
	switch p {
	case "", ProjectRenewableEnergy, ProjectForestry, ProjectMethaneCapture,
		ProjectEnergyEfficiency, ProjectWaterRestoration, ProjectCommunity:
		return true
	}
	return false
}

// PurchaseStatus is the lifecycle state of an offset purchase.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// Scope narrows a query below the subject. Empty fields mean "not filtered".
type Scope struct {
	OrganizationID string `json:"organization_id,omitempty"`
	DepartmentID   string `json:"department_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
}

// Period is a usage reporting window.
type Period struct {
	Start time.Time `json:"start_date" binding:"required"`
	End   time.Time `json:"end_date" binding:"required"`
	Name  string    `json:"name,omitempty"`
}

// CustomUsage is a caller-defined usage line with a precomputed footprint.
type CustomUsage struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Unit       string  `json:"unit"`
	CarbonInKg float64 `json:"carbon_in_kg"`
}

// CustomUsageJSON stores custom usage lines in a jsonb column.
type CustomUsageJSON []CustomUsage

func (c CustomUsageJSON) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *CustomUsageJSON) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type: %T", value)
	}

	return json.Unmarshal(data, c)
}

// UsageInput is the raw activity a footprint is computed from.
type UsageInput struct {
	InvoiceCount int           `json:"invoice_count" binding:"gte=0"`
	EmailCount   int           `json:"email_count" binding:"gte=0"`
	StorageGB    float64       `json:"storage_gb" binding:"gte=0"`
	APICallCount int           `json:"api_call_count" binding:"gte=0"`
	CustomUsage  []CustomUsage `json:"custom_usage,omitempty"`
}

// Estimate is a priced offer to offset an amount of carbon.
type Estimate struct {
	EstimateID      string  `json:"estimate_id"`
	CarbonInKg      float64 `json:"carbon_in_kg"`
	CostInUSDCents  int64   `json:"cost_in_usd_cents"`
	FormattedCost   string  `json:"formatted_cost"`
	ProjectType     string  `json:"project_type,omitempty"`
	ProjectName     string  `json:"project_name,omitempty"`
	ProjectLocation string  `json:"project_location,omitempty"`
}

// Project is an offset project available for purchase.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Registry    string `json:"registry"`
	RegistryURL string `json:"registry_url"`
}

// MonthlyCarbon is one point of a footprint trend.
type MonthlyCarbon struct {
	Month            string  `json:"month"`
	TotalCarbonInKg  float64 `json:"total_carbon_in_kg"`
	OffsetCarbonInKg float64 `json:"offset_carbon_in_kg"`
}

// FootprintSummary aggregates the last twelve months of usage.
type FootprintSummary struct {
	TotalCarbonInKg      float64         `json:"total_carbon_in_kg"`
	OffsetCarbonInKg     float64         `json:"offset_carbon_in_kg"`
	RemainingCarbonInKg  float64         `json:"remaining_carbon_in_kg"`
	OffsetPercentage     float64         `json:"offset_percentage"`
	TotalOffsetPurchases int64           `json:"total_offset_purchases"`
	MonthlyTrend         []MonthlyCarbon `json:"monthly_trend"`
}
