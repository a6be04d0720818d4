package middleware

// Common context keys
const (
	UserContextKey         = "user_id"
	OrganizationContextKey = "organization_id"
)

// Request headers
const (
	UserHeader         = "X-User-ID"
	OrganizationHeader = "X-Organization-ID"
)
