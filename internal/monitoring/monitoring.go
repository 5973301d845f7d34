package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

const (
	metricPrefix = "airflow_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoData  = "no_data"
)

var (
	registerOnce sync.Once

	fetchTotal     *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	fallbackTotal  prometheus.Counter
	staleResults   prometheus.Counter
	fanOutDevices  prometheus.Histogram
	fanOutFailures *prometheus.CounterVec
	deviceEvents   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_total",
				Help: "Total fetches by mode and result",
			},
			[]string{"mode", "result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		)
		fallbackTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "window_fallback_total",
				Help: "Fetches answered from the most recent available window",
			},
		)
		staleResults = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stale_results_total",
				Help: "Dashboard results discarded because a newer request superseded them",
			},
		)
		fanOutDevices = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fanout_devices",
				Help:    "Number of devices per multi-device fetch",
				Buckets: []float64{1, 2, 4, 8, 16, 32},
			},
		)
		fanOutFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fanout_member_failures_total",
				Help: "Per-device fan-out failures by reason",
			},
			[]string{"reason"},
		)
		deviceEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_events_total",
				Help: "Device lifecycle events by type",
			},
			[]string{"event"},
		)
		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_lookups_total",
				Help: "Averages cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			fetchTotal,
			fetchLatency,
			fallbackTotal,
			staleResults,
			fanOutDevices,
			fanOutFailures,
			deviceEvents,
			cacheLookups,
		)
		nuts.L.Infof("[Monitoring] Prometheus collectors registered")
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveFetch(mode, result string, took time.Duration) {
	if fetchTotal == nil {
		return
	}
	fetchTotal.WithLabelValues(mode, result).Inc()
	fetchLatency.WithLabelValues(mode).Observe(took.Seconds())
}

func IncFallback() {
	if fallbackTotal == nil {
		return
	}
	fallbackTotal.Inc()
}

func IncStaleResult() {
	if staleResults == nil {
		return
	}
	staleResults.Inc()
}

func ObserveFanOut(devices int, failures map[string]string) {
	if fanOutDevices == nil {
		return
	}
	fanOutDevices.Observe(float64(devices))
	for _, reason := range failures {
		fanOutFailures.WithLabelValues(reason).Inc()
	}
}

func IncDeviceEvent(event string) {
	if deviceEvents == nil {
		return
	}
	deviceEvents.WithLabelValues(event).Inc()
}

func ObserveCache(hit bool) {
	if cacheLookups == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.WithLabelValues(outcome).Inc()
}
