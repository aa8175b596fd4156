package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	farmingMetricsOnce sync.Once
	farmingRegistry    *FarmingMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// API activity per module and method.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cafi",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cafi",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cafi",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cafi",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// FarmingMetrics captures settlement activity and pool accounting.
type FarmingMetrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rewardPool  prometheus.Gauge
	totalStaked prometheus.Gauge
	paused      prometheus.Gauge
	disbursed   *prometheus.CounterVec
}

// Farming returns the singleton metrics registry for the farming processor.
func Farming() *FarmingMetrics {
	farmingMetricsOnce.Do(func() {
		farmingRegistry = &FarmingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "operations_total",
				Help:      "Count of farming calls segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for farming calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			rewardPool: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "reward_pool_balance",
				Help:      "Reward pool liquidity after the last committed call.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "total_staked",
				Help:      "Aggregate live principal after the last committed call.",
			}),
			paused: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "pause_engaged",
				Help:      "Indicates whether the farming pause is active (1) or not (0).",
			}),
			disbursed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cafi",
				Subsystem: "farming",
				Name:      "rewards_disbursed_total",
				Help:      "Reward token units drawn from the pool segmented by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			farmingRegistry.operations,
			farmingRegistry.latency,
			farmingRegistry.rewardPool,
			farmingRegistry.totalStaked,
			farmingRegistry.paused,
			farmingRegistry.disbursed,
		)
	})
	return farmingRegistry
}

// Observe records a call outcome. Outcome should be "success" or the error
// classification of the rejection.
func (m *FarmingMetrics) Observe(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if operation = strings.TrimSpace(operation); operation == "" {
		operation = "unknown"
	}
	if outcome = strings.TrimSpace(outcome); outcome == "" {
		outcome = "unspecified"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordPool updates the pool gauges.
func (m *FarmingMetrics) RecordPool(rewardBalance, totalStaked *big.Int) {
	if m == nil {
		return
	}
	m.rewardPool.Set(bigToFloat(rewardBalance))
	m.totalStaked.Set(bigToFloat(totalStaked))
}

// RecordDisbursed adds amount to the disbursement counter for operation.
func (m *FarmingMetrics) RecordDisbursed(operation string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.disbursed.WithLabelValues(operation).Add(bigToFloat(amount))
}

// SetPause toggles the pause_engaged gauge.
func (m *FarmingMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
