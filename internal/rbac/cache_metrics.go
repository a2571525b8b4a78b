package rbac

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheMetricsMu          sync.Mutex
	cacheMetricsInitialized bool

	cacheHitCounter   *prometheus.CounterVec
	cacheMissCounter  prometheus.Counter
	cacheMetricsError error
)

// SetupCacheMetrics registers Prometheus collectors observing the layered
// permission cache. The registration is performed once and subsequent
// calls return the first outcome.
func SetupCacheMetrics(reg prometheus.Registerer) error {
	cacheMetricsMu.Lock()
	defer cacheMetricsMu.Unlock()
	if cacheMetricsInitialized {
		return cacheMetricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platecost_rbac_cache_hits_total",
		Help: "Number of permission cache hits per tier.",
	}, []string{"tier"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platecost_rbac_cache_miss_total",
		Help: "Number of permission lookups missing every cache tier.",
	})
	cacheHitCounter = hits
	cacheMissCounter = misses

	for _, collector := range []prometheus.Collector{hits, misses} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				switch existing := already.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					cacheHitCounter = existing
				case prometheus.Counter:
					cacheMissCounter = existing
				default:
					cacheMetricsError = fmt.Errorf("rbac: unexpected cache metrics collector %T", existing)
				}
				continue
			}
			cacheHitCounter = nil
			cacheMissCounter = nil
			cacheMetricsError = err
			break
		}
	}

	cacheMetricsInitialized = true
	return cacheMetricsError
}

func recordCacheHit(tier string) {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.WithLabelValues(tier).Inc()
}

func recordCacheMiss() {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.Inc()
}
