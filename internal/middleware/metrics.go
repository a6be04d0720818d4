package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/metrics"
)

type MetricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		logger: logger,
	}
}

func (m *MetricsMiddleware) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		duration := float64(elapsed.Milliseconds())

		route := "all"
		if metrics.Config.EnablePerRoute {
			route = c.FullPath()
			if route == "" {
				route = "unmatched"
			}
		}
		metrics.RequestLatency.WithLabelValues(route).Observe(duration)

		// Always record request total
		status := metrics.GetStatusClass(fmt.Sprint(c.Writer.Status()))
		metrics.RequestTotal.WithLabelValues(c.Request.Method, status).Inc()

		m.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": elapsed.String(),
		}).Debug("Request processed")
	}
}
