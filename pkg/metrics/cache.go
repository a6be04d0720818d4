package metrics

import (
	"time"

	"github.com/GYB356/climabill-sub002/pkg/cache"
)

// CacheRecorder reports cache activity to Prometheus.
type CacheRecorder struct{}

var _ cache.Metrics = CacheRecorder{}

func (CacheRecorder) Hit(ns string)       { CacheRequests.WithLabelValues(ns, "hit").Inc() }
func (CacheRecorder) Miss(ns string)      { CacheRequests.WithLabelValues(ns, "miss").Inc() }
func (CacheRecorder) Bypass(ns string)    { CacheRequests.WithLabelValues(ns, "bypass").Inc() }
func (CacheRecorder) Coalesced(ns string) { CacheRequests.WithLabelValues(ns, "coalesced").Inc() }

func (CacheRecorder) Loaded(ns string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CacheLoadLatency.WithLabelValues(ns, outcome).Observe(milliseconds(took))
}

func (CacheRecorder) Evicted(n int) {
	CacheEvictions.Add(float64(n))
}
