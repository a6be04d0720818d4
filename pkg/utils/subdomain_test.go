package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTenantFromSubdomain(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		baseDomain string
		want       string
	}{
		{
			name:       "valid tenant subdomain",
			host:       "acme.climabill.io",
			baseDomain: "climabill.io",
			want:       "acme",
		},
		{
			name:       "invalid tenant subdomain",
			host:       "invalid@.climabill.io",
			baseDomain: "climabill.io",
			want:       "",
		},
		{
			name:       "no tenant subdomain",
			host:       "climabill.io",
			baseDomain: "climabill.io",
			want:       "",
		},
		{
			name:       "with port number",
			host:       "acme.climabill.io:8080",
			baseDomain: "climabill.io",
			want:       "acme",
		},
		{
			name:       "mixed case host",
			host:       "ACME.ClimaBill.io",
			baseDomain: "climabill.io",
			want:       "acme",
		},
		{
			name:       "lookalike domain",
			host:       "acme.notclimabill.io",
			baseDomain: "climabill.io",
			want:       "",
		},
		{
			name:       "nested subdomain",
			host:       "eu.acme.climabill.io",
			baseDomain: "climabill.io",
			want:       "",
		},
		{
			name:       "leading hyphen",
			host:       "-acme.climabill.io",
			baseDomain: "climabill.io",
			want:       "",
		},
		{
			name:       "empty base domain",
			host:       "acme.climabill.io",
			baseDomain: "",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTenantFromSubdomain(tt.host, tt.baseDomain))
		})
	}
}
