package obs

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "konnekt_build_info",
		Help: "Build metadata. Value is always 1; the labels carry the data.",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo registers and publishes build metadata. Call once at startup,
// after Init.
func SetBuildInfo(version, commit string) {
	prometheus.MustRegister(buildInfo)
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
