package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/GYB356/climabill-sub002/pkg/metrics"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tenant := NewTenantMiddleware(logger, "climabill.io")
	router := gin.New()
	router.Use(NewMetricsMiddleware(logger).MetricsMiddleware())
	router.Use(tenant.IdentifyTenant(), tenant.RequireUser())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":         c.GetString(UserContextKey),
			"organization": c.GetString(OrganizationContextKey),
		})
	})
	return router
}

func TestTenantMiddleware(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		host       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "organization from subdomain",
			host:       "acme.climabill.io",
			headers:    map[string]string{UserHeader: "user-1", OrganizationHeader: "ignored"},
			wantStatus: http.StatusOK,
			wantBody:   `{"organization":"acme","user":"user-1"}`,
		},
		{
			name:       "organization from header",
			host:       "climabill.io",
			headers:    map[string]string{UserHeader: "user-1", OrganizationHeader: "org-9"},
			wantStatus: http.StatusOK,
			wantBody:   `{"organization":"org-9","user":"user-1"}`,
		},
		{
			name:       "no organization",
			host:       "localhost:8080",
			headers:    map[string]string{UserHeader: "user-1"},
			wantStatus: http.StatusOK,
			wantBody:   `{"organization":"","user":"user-1"}`,
		},
		{
			name:       "missing user",
			host:       "acme.climabill.io",
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"missing X-User-ID header"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Host = tt.host
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	router := newTestRouter(t)
	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "4xx"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "4xx")))
}
