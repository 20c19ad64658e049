// Package metrics holds the Prometheus instruments of a build.  All
// collectors are registered with the global registry, so the daemon exposes
// them on /metrics and the CLI can dump them with WriteTextfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xtbuild_builds_total",
			Help: "Build invocations by request kind and outcome.",
		}, []string{"kind", "outcome"})

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xtbuild_step_duration_seconds",
			Help:    "Wall time of each pipeline step.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"step", "outcome"})

	DiscoveryErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xtbuild_discovery_errors_total",
			Help: "Registered-extension lookups that failed.",
		})

	PackagesInstalledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xtbuild_packages_installed_total",
			Help: "Extension packages installed from the package registry.",
		})
)

func init() {
	prometheus.MustRegister(
		BuildsTotal,
		StepDuration,
		DiscoveryErrorsTotal,
		PackagesInstalledTotal,
	)
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
