package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video2barcode_frames_sampled_total",
		Help: "Total number of frames decoded and handed to the reducer",
	})

	FramesGrabbedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video2barcode_frames_grabbed_total",
		Help: "Total number of frames skipped without materialization",
	})

	DecodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video2barcode_decode_failures_total",
		Help: "Frame reads that failed with something other than end of stream",
	})

	ReductionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video2barcode_reductions_total",
		Help: "Frame reductions, by outcome",
	}, []string{"outcome"})

	ReductionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video2barcode_reduction_duration_seconds",
		Help:    "Time spent reducing a single frame",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "video2barcode_stage_duration_seconds",
		Help:    "Duration of each barcode generation stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video2barcode_active_workers",
		Help: "Number of workers currently reducing a frame",
	})
)
