package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordsmith_generate_requests_total",
		Help: "Total number of generation calls by outcome",
	}, []string{"outcome"})

	GenerateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordsmith_generate_duration_seconds",
		Help:    "Duration of generation calls",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
	})

	GenerateAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordsmith_generate_attempts",
		Help:    "Attempts consumed by successful generation calls",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	WordLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordsmith_word_length_symbols",
		Help:    "Length of generated words",
		Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 24, 32, 64, 128, 256},
	})

	ModelReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordsmith_model_reloads_total",
		Help: "Total number of model reloads by outcome",
	}, []string{"outcome"})

	ReloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordsmith_model_reload_duration_seconds",
		Help:    "Duration of model reloads",
		Buckets: prometheus.DefBuckets,
	})

	LoadedModels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordsmith_loaded_models",
		Help: "Number of models in the served set",
	})
)

// RecordGenerate records one generation call. outcome is "ok" or the kind of
// error it failed with.
func RecordGenerate(outcome string, attempts, length int, d time.Duration) {
	GenerateRequests.WithLabelValues(outcome).Inc()
	GenerateDuration.Observe(d.Seconds())
	if outcome == "ok" {
		GenerateAttempts.Observe(float64(attempts))
		WordLength.Observe(float64(length))
	}
}

// RecordReload records one reload of the served models.
func RecordReload(ok bool, loaded int, d time.Duration) {
	ReloadDuration.Observe(d.Seconds())
	if !ok {
		ModelReloads.WithLabelValues("error").Inc()
		return
	}
	ModelReloads.WithLabelValues("ok").Inc()
	LoadedModels.Set(float64(loaded))
}
