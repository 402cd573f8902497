// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adrotate"

var (
	// AdServesTotal tracks rotation outcomes.
	// Labels:
	//   - outcome: cold, advance, next_page, wrap, no_ads, error
	AdServesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ad_serves_total",
			Help:      "Total number of ad serve attempts by rotation outcome",
		},
		[]string{"outcome"},
	)

	// CacheOperationsTotal tracks cache operations (get, set).
	// Labels:
	//   - operation: get, set
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// StoreOperationsTotal tracks bulk store calls.
	// Labels:
	//   - operation: list, get, put
	//   - status: success, error
	//   - driver: minio, s3
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of bulk store operations",
		},
		[]string{"operation", "status", "driver"},
	)

	// CampaignKeysWrittenTotal counts bucket keys written by the loader.
	CampaignKeysWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_keys_written_total",
			Help:      "Total number of bucket keys written to the bulk store",
		},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Serve outcome constants.
const (
	OutcomeCold     = "cold"
	OutcomeAdvance  = "advance"
	OutcomeNextPage = "next_page"
	OutcomeWrap     = "wrap"
	OutcomeNoAds    = "no_ads"
	OutcomeError    = "error"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// Store operation constants.
const (
	StoreOpList = "list"
	StoreOpGet  = "get"
	StoreOpPut  = "put"

	StoreStatusSuccess = "success"
	StoreStatusError   = "error"
)

// Store driver constants.
const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// ObserveStore records the outcome of a bulk store call.
func ObserveStore(driver, operation string, err error) {
	status := StoreStatusSuccess
	if err != nil {
		status = StoreStatusError
	}
	StoreOperationsTotal.WithLabelValues(operation, status, driver).Inc()
}
