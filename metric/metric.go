package metric

import (
	"time"

	"github.com/hermeznetwork/slotauction/log"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	// Metric represents the metric type
	Metric string
)

const (
	namespaceError  = "error"
	namespaceKeeper = "keeper"
	namespaceAPI    = "api"
)

var (
	// Errors errors count metric.
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceError,
			Name:      "errors",
			Help:      "",
		}, []string{"error"})

	// KeeperSteps keeper step count by outcome
	KeeperSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceKeeper,
			Name:      "steps_total",
			Help:      "",
		}, []string{"outcome"})

	// KeeperStepDuration duration of the keeper steps that resolved a
	// round, in milliseconds
	KeeperStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceKeeper,
			Name:      "step_duration",
			Help:      "",
		}, []string{"outcome"})

	// LastResolvedRound id of the last round resolved by the keeper
	LastResolvedRound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceKeeper,
			Name:      "last_resolved_round",
			Help:      "",
		})

	// SignedRequests signed API requests by action and result
	SignedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceAPI,
			Name:      "signed_requests_total",
			Help:      "",
		}, []string{"action", "result"})
)

func init() {
	if err := registerCollectors(); err != nil {
		log.Error(err)
	}
}
func registerCollectors() error {
	if err := registerCollector(Errors); err != nil {
		return err
	}
	if err := registerCollector(KeeperSteps); err != nil {
		return err
	}
	if err := registerCollector(KeeperStepDuration); err != nil {
		return err
	}
	if err := registerCollector(LastResolvedRound); err != nil {
		return err
	}
	return registerCollector(SignedRequests)
}

func registerCollector(collector prometheus.Collector) error {
	err := prometheus.Register(collector)
	if err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// MeasureDuration measure the method execution duration
// and save it into a histogram metric
func MeasureDuration(histogram *prometheus.HistogramVec, start time.Time, lvs ...string) {
	duration := time.Since(start)
	histogram.WithLabelValues(lvs...).Observe(float64(duration.Milliseconds()))
}

// CollectError collect the error message and increment
// the error count
func CollectError(err error) {
	Errors.With(map[string]string{"error": err.Error()}).Inc()
}
