package utils

import (
	"strings"
)

// ExtractTenantFromSubdomain returns the organization slug of a tenant host.
// Example: acme.climabill.io -> acme. Hosts outside baseDomain, the bare
// base domain and nested subdomains yield "".
func ExtractTenantFromSubdomain(host string, baseDomain string) string {
	if host == "" || baseDomain == "" {
		return ""
	}

	// Drop the port and normalize case; DNS names are case-insensitive
	host = strings.ToLower(strings.Split(host, ":")[0])
	baseDomain = strings.ToLower(strings.TrimPrefix(baseDomain, "."))

	tenant, ok := strings.CutSuffix(host, "."+baseDomain)
	if !ok || !isValidTenantName(tenant) {
		return ""
	}

	return tenant
}

// isValidTenantName allows lowercase letters, digits and inner hyphens.
func isValidTenantName(tenant string) bool {
	if len(tenant) == 0 || tenant[0] == '-' || tenant[len(tenant)-1] == '-' {
		return false
	}

	for _, char := range tenant {
		if !((char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '-') {
			return false
		}
	}
	return true
}
