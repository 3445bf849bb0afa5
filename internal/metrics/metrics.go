// Package metrics registers and exposes Prometheus metrics for the
// alerting service. All metrics live in the default VictoriaMetrics set
// and are rendered by WritePrometheus.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// RecordHTTPRequest counts one API request and observes its duration.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`alertd_http_requests_total{method=%q,path=%q,status="%d"}`, method, path, status)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`alertd_http_request_duration_seconds{method=%q,path=%q}`, method, path)).Update(duration.Seconds())
}

// RecordDispatchAttempt counts one channel delivery attempt by outcome.
func RecordDispatchAttempt(channel, kind, status string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`alertd_dispatch_attempts_total{channel=%q,kind=%q,status=%q}`, channel, kind, status)).Inc()
}

// RecordReminderTick counts one reminder pass and observes how long it took.
func RecordReminderTick(duration time.Duration) {
	metrics.GetOrCreateCounter(`alertd_reminder_ticks_total`).Inc()
	metrics.GetOrCreateHistogram(`alertd_reminder_tick_duration_seconds`).Update(duration.Seconds())
}

// RecordRemindersClaimed adds the number of (alert, user) pairs a pass
// claimed for notification.
func RecordRemindersClaimed(n int) {
	if n <= 0 {
		return
	}
	metrics.GetOrCreateCounter(`alertd_reminders_claimed_total`).Add(n)
}

// RecordAlertCreated counts alert creations by severity.
func RecordAlertCreated(severity string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`alertd_alerts_created_total{severity=%q}`, severity)).Inc()
}

// WritePrometheus renders all registered metrics plus process metrics in
// Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
