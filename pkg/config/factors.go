package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// EmissionFactors are kg CO2e per unit of activity.
type EmissionFactors struct {
	CarbonPerInvoice   float64 `yaml:"carbon_per_invoice"`
	CarbonPerEmail     float64 `yaml:"carbon_per_email"`
	CarbonPerGBStorage float64 `yaml:"carbon_per_gb_storage"`
	CarbonPerAPICall   float64 `yaml:"carbon_per_api_call"`
}

func DefaultEmissionFactors() EmissionFactors {
	return EmissionFactors{
		CarbonPerInvoice:   0.2,
		CarbonPerEmail:     0.004,
		CarbonPerGBStorage: 0.05,
		CarbonPerAPICall:   0.002,
	}
}

// LoadEmissionFactors reads factors from a YAML file. Fields missing from
// the file keep their defaults; an empty path returns the defaults.
func LoadEmissionFactors(path string) (EmissionFactors, error) {
	factors := DefaultEmissionFactors()
	if path == "" {
		return factors, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return factors, fmt.Errorf("failed to read emission factors: %w", err)
	}

	if err := yaml.Unmarshal(data, &factors); err != nil {
		return factors, fmt.Errorf("failed to unmarshal emission factors: %w", err)
	}

	if factors.CarbonPerInvoice < 0 || factors.CarbonPerEmail < 0 ||
		factors.CarbonPerGBStorage < 0 || factors.CarbonPerAPICall < 0 {
		return factors, fmt.Errorf("emission factors must not be negative")
	}

	return factors, nil
}
