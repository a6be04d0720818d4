package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/GYB356/climabill-sub002/pkg/models"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("project_type", validateProjectType)
	}
}

func validateProjectType(fl validator.FieldLevel) bool {
	return models.ProjectType(fl.Field().String()).Valid()
}

type trackUsageRequest struct {
	models.UsageInput
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	PeriodName   string `json:"period_name"`
	DepartmentID string `json:"department_id"`
	ProjectID    string `json:"project_id"`
}

type estimateRequest struct {
	CarbonInKg  float64 `json:"carbon_in_kg" binding:"required,gt=0"`
	ProjectType string  `json:"project_type" binding:"omitempty,project_type"`
}

type purchaseRequest struct {
	EstimateID string `json:"estimate_id" binding:"required"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339Nano}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns UTC.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}
	from, err := parseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must not be before start")
	}
	return from, to, nil
}
