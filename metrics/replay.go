// Package metrics holds the Prometheus instrumentation for the replay guard.
// It lives in its own package so the CLI and any embedding service can
// register it without importing guard internals.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Replay counts replay-guard outcomes. A nil *Replay is valid and records nothing.
type Replay struct {
	Accepted      prometheus.Counter
	Replayed      prometheus.Counter
	StorageErrors prometheus.Counter
	Rejected      prometheus.Counter
	Cleaned       prometheus.Counter
	Records       *prometheus.GaugeVec // labeled by ledger namespace
}

// NewReplay creates unregistered collectors. namespace is the Prometheus
// namespace prefix, e.g. "paykit".
func NewReplay(namespace string) *Replay {
	return &Replay{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "nonces_accepted_total",
			Help:      "Nonces observed for the first time and marked used",
		}),
		Replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "replays_detected_total",
			Help:      "Nonces rejected because they were already used",
		}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "storage_errors_total",
			Help:      "Ledger reads or writes that failed (guard failed closed)",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "nonces_rejected_total",
			Help:      "Nonces rejected for shape or ledger capacity",
		}),
		Cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "records_cleaned_total",
			Help:      "Expired ledger records removed",
		}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "records",
			Help:      "Records currently held in the nonce ledger",
		}, []string{"namespace"}),
	}
}

// Register registers every collector on reg (or the default registerer if
// nil). Collectors that are already registered are not an error.
func (r *Replay) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{r.Accepted, r.Replayed, r.StorageErrors, r.Rejected, r.Cleaned, r.Records} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// ObserveAccepted records a fresh nonce and the resulting size of the
// ledger for ledgerNS.
func (r *Replay) ObserveAccepted(ledgerNS string, records int) {
	if r == nil {
		return
	}
	r.Accepted.Inc()
	r.Records.WithLabelValues(ledgerNS).Set(float64(records))
}

// ObserveReplay records a detected replay.
func (r *Replay) ObserveReplay() {
	if r == nil {
		return
	}
	r.Replayed.Inc()
}

// ObserveStorageError records a failed ledger read or write.
func (r *Replay) ObserveStorageError() {
	if r == nil {
		return
	}
	r.StorageErrors.Inc()
}

// ObserveRejected records a nonce refused for shape or capacity.
func (r *Replay) ObserveRejected() {
	if r == nil {
		return
	}
	r.Rejected.Inc()
}

// ObserveCleanup records removed expired records and the remaining size.
func (r *Replay) ObserveCleanup(ledgerNS string, removed, remaining int) {
	if r == nil {
		return
	}
	r.Cleaned.Add(float64(removed))
	r.Records.WithLabelValues(ledgerNS).Set(float64(remaining))
}

// ObserveSize sets the ledger-size gauge for ledgerNS.
func (r *Replay) ObserveSize(ledgerNS string, records int) {
	if r == nil {
		return
	}
	r.Records.WithLabelValues(ledgerNS).Set(float64(records))
}
