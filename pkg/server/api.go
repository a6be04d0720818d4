package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/internal/middleware"
	"github.com/GYB356/climabill-sub002/pkg/carbon"
	"github.com/GYB356/climabill-sub002/pkg/cloverly"
	"github.com/GYB356/climabill-sub002/pkg/config"
	"github.com/GYB356/climabill-sub002/pkg/metrics"
	"github.com/GYB356/climabill-sub002/pkg/models"
	"github.com/GYB356/climabill-sub002/pkg/reporting"
)

const (
	maxHistoryLimit = 100

	// statusClientClosedRequest is nginx's code for a client that hung up
	// before the response was ready.
	statusClientClosedRequest = 499
)

// APIServer exposes the carbon service over HTTP.
type APIServer struct {
	*BaseServer
	service  carbon.DataService
	exporter *reporting.Exporter
}

func NewAPIServer(config *config.Config, service carbon.DataService, logger *logrus.Logger) *APIServer {
	s := &APIServer{
		BaseServer: NewBaseServer(config, logger),
		service:    service,
		exporter:   reporting.NewExporter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for embedding and tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

func (s *APIServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("Starting API server")
	return s.runServer(ctx, addr)
}

func (s *APIServer) setupRoutes() {
	s.setupHealthCheck()

	if s.config.Metrics.Enabled {
		s.router.Use(middleware.NewMetricsMiddleware(s.logger).MetricsMiddleware())
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	tenant := middleware.NewTenantMiddleware(s.logger, s.config.Server.BaseDomain)

	v1 := s.router.Group("/api/v1")
	v1.Use(tenant.IdentifyTenant(), tenant.RequireUser())
	{
		usage := v1.Group("/usage")
		{
			usage.GET("", s.getUsage)
			usage.POST("", s.trackUsage)
			usage.GET("/history", s.getUsageHistory)
			usage.GET("/summary", s.getSummary)
			usage.GET("/export", s.exportUsage)
		}

		offsets := v1.Group("/offsets")
		{
			offsets.GET("/total", s.getOffsetTotal)
			offsets.GET("/history", s.getPurchaseHistory)
			offsets.POST("/estimate", s.estimateOffset)
			offsets.POST("/purchase", s.purchaseOffset)
		}

		v1.GET("/projects", s.listProjects)
	}
}

func subject(c *gin.Context) (string, string) {
	return c.GetString(middleware.UserContextKey), c.GetString(middleware.OrganizationContextKey)
}

// limitParam reads ?limit=. Absent or 0 means the service default, larger
// values are capped at maxHistoryLimit.
func limitParam(c *gin.Context) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q: must be a non-negative integer", limitStr)
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, nil
}

// fail maps service errors to HTTP statuses.
func (s *APIServer) fail(c *gin.Context, err error, msg string) {
	var apiErr *cloverly.APIError

	switch {
	case errors.Is(err, carbon.ErrSubjectRequired),
		errors.Is(err, carbon.ErrInvalidPeriod),
		errors.Is(err, carbon.ErrInvalidAmount),
		errors.Is(err, carbon.ErrInvalidProjectType),
		errors.Is(err, carbon.ErrEstimateRequired):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		s.logger.WithError(err).WithField("status", apiErr.StatusCode).Error(msg)
		respondError(c, http.StatusBadGateway, "offset provider error: "+apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.WithError(err).Error(msg)
		respondError(c, http.StatusGatewayTimeout, msg)
	case errors.Is(err, context.Canceled):
		s.logger.WithError(err).Debug(msg)
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		s.logger.WithError(err).Error(msg)
		respondError(c, http.StatusInternalServerError, msg)
	}
}

func (s *APIServer) getUsage(c *gin.Context) {
	userID, orgID := subject(c)

	start, end, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	scope := models.Scope{
		OrganizationID: orgID,
		DepartmentID:   c.Query("department_id"),
		ProjectID:      c.Query("project_id"),
	}

	usage, err := s.service.GetUsageForPeriod(c.Request.Context(), userID, start, end, scope)
	if err != nil {
		s.fail(c, err, "Failed to get usage")
		return
	}
	if usage == nil {
		respondError(c, http.StatusNotFound, "no usage recorded for period")
		return
	}

	respondJSON(c, http.StatusOK, usage)
}

func (s *APIServer) trackUsage(c *gin.Context) {
	userID, orgID := subject(c)

	var req trackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WithError(err).Debug("Failed to bind request")
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	period := models.Period{Start: start, End: end, Name: req.PeriodName}
	scope := models.Scope{OrganizationID: orgID, DepartmentID: req.DepartmentID, ProjectID: req.ProjectID}

	usage, err := s.service.TrackUsage(c.Request.Context(), userID, req.UsageInput, period, scope)
	if err != nil {
		s.fail(c, err, "Failed to track usage")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"usage_id": usage.ID,
	}).Info("Usage tracked")

	respondJSON(c, http.StatusCreated, usage)
}

func (s *APIServer) getUsageHistory(c *gin.Context) {
	userID, orgID := subject(c)
	limit, err := limitParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	usage, err := s.service.GetUsageHistory(c.Request.Context(), userID, limit, orgID)
	if err != nil {
		s.fail(c, err, "Failed to list usage")
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"usage": usage,
		"count": len(usage),
	})
}

func (s *APIServer) getSummary(c *gin.Context) {
	userID, orgID := subject(c)

	summary, err := s.service.GetFootprintSummary(c.Request.Context(), userID, orgID)
	if err != nil {
		s.fail(c, err, "Failed to build footprint summary")
		return
	}

	respondJSON(c, http.StatusOK, summary)
}

func (s *APIServer) exportUsage(c *gin.Context) {
	userID, orgID := subject(c)
	limit, err := limitParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	usage, err := s.service.GetUsageHistory(c.Request.Context(), userID, limit, orgID)
	if err != nil {
		s.fail(c, err, "Failed to list usage")
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteUsage(&buf, usage); err != nil {
		s.fail(c, err, "Failed to export usage")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="carbon-usage.arrow"`)
	c.Data(http.StatusOK, reporting.ContentType, buf.Bytes())
}

func (s *APIServer) getOffsetTotal(c *gin.Context) {
	userID, orgID := subject(c)

	start, end, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.service.GetOffsetTotalForPeriod(c.Request.Context(), userID, start, end, orgID)
	if err != nil {
		s.fail(c, err, "Failed to sum offsets")
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"carbon_in_kg": total})
}

func (s *APIServer) getPurchaseHistory(c *gin.Context) {
	userID, orgID := subject(c)
	limit, err := limitParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	offsets, err := s.service.GetPurchaseHistory(c.Request.Context(), userID, limit, orgID)
	if err != nil {
		s.fail(c, err, "Failed to list offsets")
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"offsets": offsets,
		"count":   len(offsets),
	})
}

func (s *APIServer) estimateOffset(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	estimate, err := s.service.EstimateOffsetCost(c.Request.Context(), req.CarbonInKg, models.ProjectType(req.ProjectType))
	if err != nil {
		s.fail(c, err, "Failed to estimate offset cost")
		return
	}

	respondJSON(c, http.StatusOK, estimate)
}

func (s *APIServer) purchaseOffset(c *gin.Context) {
	userID, orgID := subject(c)

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	offset, err := s.service.PurchaseOffset(c.Request.Context(), userID, req.EstimateID, orgID)
	if err != nil {
		s.fail(c, err, "Failed to purchase offset")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"purchase_id":  offset.PurchaseID,
		"carbon_in_kg": offset.CarbonInKg,
	}).Info("Offset purchased")

	respondJSON(c, http.StatusCreated, offset)
}

func (s *APIServer) listProjects(c *gin.Context) {
	projectType := models.ProjectType(c.Query("type"))
	if !projectType.Valid() {
		respondError(c, http.StatusBadRequest, "unknown project type")
		return
	}

	projects, err := s.service.GetAvailableProjects(c.Request.Context(), projectType)
	if err != nil {
		s.fail(c, err, "Failed to list projects")
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"projects": projects})
}
