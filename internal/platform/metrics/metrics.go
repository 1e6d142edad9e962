package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Every method is
// safe on a nil receiver so handlers and services can be built without metrics
// in tests.
type Metrics struct {
	UsersRegistered      prometheus.Counter
	NotificationAttempts *prometheus.CounterVec
	FallbackFiles        *prometheus.CounterVec
	ReportsStored        prometheus.Counter
	VaultScanned         prometheus.Counter
	VaultDecrypted       prometheus.Counter
	VaultSkipped         prometheus.Counter
	AlertLogAppends      *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "safesupport_users_registered_total",
			Help: "Total number of users registered",
		}),
		NotificationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safesupport_notification_attempts_total",
			Help: "Per-recipient notification attempts by channel, provider and outcome",
		}, []string{"channel", "provider", "outcome"}),
		FallbackFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safesupport_notification_fallback_files_total",
			Help: "Notification fallback files written by channel",
		}, []string{"channel"}),
		ReportsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "safesupport_vault_reports_stored_total",
			Help: "Encrypted reports written to the vault",
		}),
		VaultScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "safesupport_vault_sweep_scanned_total",
			Help: "Vault files examined during retrieval sweeps",
		}),
		VaultDecrypted: factory.NewCounter(prometheus.CounterOpts{
			Name: "safesupport_vault_sweep_decrypted_total",
			Help: "Vault files decrypted during retrieval sweeps",
		}),
		VaultSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "safesupport_vault_sweep_skipped_total",
			Help: "Vault files skipped during retrieval sweeps (unreadable, unparseable or wrong password)",
		}),
		AlertLogAppends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safesupport_alert_log_appends_total",
			Help: "Alert log append attempts by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safesupport_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// IncrementUsersRegistered increments the users registered counter by 1
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

func (m *Metrics) ObserveNotificationAttempt(channel, provider string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	if provider == "" {
		provider = "none"
	}
	m.NotificationAttempts.WithLabelValues(channel, provider, outcome).Inc()
}

func (m *Metrics) IncrementFallbackFiles(channel string) {
	if m == nil {
		return
	}
	m.FallbackFiles.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementReportsStored() {
	if m == nil {
		return
	}
	m.ReportsStored.Inc()
}

// ObserveVaultSweep records the counts of a single retrieval sweep.
func (m *Metrics) ObserveVaultSweep(scanned, decrypted, skipped int) {
	if m == nil {
		return
	}
	m.VaultScanned.Add(float64(scanned))
	m.VaultDecrypted.Add(float64(decrypted))
	m.VaultSkipped.Add(float64(skipped))
}

func (m *Metrics) ObserveAlertLogAppend(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AlertLogAppends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequestDuration(method, route string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
