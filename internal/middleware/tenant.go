package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/utils"
)

type TenantMiddleware struct {
	logger     *logrus.Logger
	baseDomain string
}

func NewTenantMiddleware(logger *logrus.Logger, baseDomain string) *TenantMiddleware {
	return &TenantMiddleware{
		logger:     logger,
		baseDomain: baseDomain,
	}
}

// IdentifyTenant stores the organization from the tenant subdomain, falling
// back to the X-Organization-ID header. Requests without either carry no
// organization.
func (m *TenantMiddleware) IdentifyTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationID := utils.ExtractTenantFromSubdomain(c.Request.Host, m.baseDomain)
		if organizationID == "" {
			organizationID = strings.TrimSpace(c.GetHeader(OrganizationHeader))
		}

		if organizationID != "" {
			c.Set(OrganizationContextKey, organizationID)
		}
		c.Next()
	}
}

// RequireUser rejects requests without an X-User-ID header.
func (m *TenantMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			m.logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"host": c.Request.Host,
			}).Debug("Request without user id")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + UserHeader + " header"})
			return
		}

		c.Set(UserContextKey, userID)
		c.Next()
	}
}
