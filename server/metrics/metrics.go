package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Activations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kavach",
		Name:      "activations_total",
		Help:      "Completed activations by entry path and tier.",
	}, []string{"path", "tier"})

	Scans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kavach",
		Name:      "scans_total",
		Help:      "Public token resolutions by outcome.",
	}, []string{"outcome"})

	ArtifactUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kavach",
		Name:      "qr_artifact_uploads_total",
		Help:      "QR image uploads by result.",
	}, []string{"result"})

	PriceMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kavach",
		Name:      "activation_price_mismatches_total",
		Help:      "Verified payments whose charged amount differs from the price of the slot they received.",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kavach",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route template and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(Activations, Scans, ArtifactUploads, PriceMismatches, RequestDuration)
}

func Tier(free bool) string {
	if free {
		return "free"
	}
	return "paid"
}
