package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Scans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_scans_total",
		Help: "Completed scans by kind and resulting status",
	}, []string{"kind", "status"})
	ClassifierFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_classifier_failures_total",
		Help: "Scans that fell back to heuristic-only scoring",
	}, []string{"kind"})
	QRDecodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_qr_decode_total",
		Help: "QR decode attempts by result (decoded, no_code, unsupported, timeout, skipped)",
	}, []string{"result"})
	SourcesBlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "phishguard_sources_blocked_total",
		Help: "Transitions of a source into the blocked state",
	})
	PersistenceErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "phishguard_persistence_errors_total",
		Help: "Failed reputation store writes",
	})
)

func init() {
	prometheus.MustRegister(Scans, ClassifierFailures, QRDecodes, SourcesBlocked, PersistenceErrors)
}
