// Package metrics exposes hawkalert's Prometheus-compatible counters and histograms.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

var set = vm.NewSet()

// RecordSync counts a finished synchronisation.
func RecordSync(operation string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	set.GetOrCreateCounter(fmt.Sprintf(`hawkalert_sync_total{operation=%q,status=%q}`, operation, status)).Inc()
}

// RecordResolution counts which trigger id format a resolution settled on.
func RecordResolution(format string) {
	set.GetOrCreateCounter(fmt.Sprintf(`hawkalert_trigger_id_resolution_total{format=%q}`, format)).Inc()
}

// RecordBuildError counts condition build failures by reason.
func RecordBuildError(reason string) {
	set.GetOrCreateCounter(fmt.Sprintf(`hawkalert_condition_build_errors_total{reason=%q}`, reason)).Inc()
}

// ObserveRequest records the duration of a Hawkular API call.
func ObserveRequest(op string, start time.Time, failed bool) {
	set.GetOrCreateHistogram(fmt.Sprintf(`hawkalert_hawkular_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)
	if failed {
		set.GetOrCreateCounter(fmt.Sprintf(`hawkalert_hawkular_request_errors_total{op=%q}`, op)).Inc()
	}
}

// WritePrometheus writes hawkalert metrics, and process metrics when requested.
func WritePrometheus(w io.Writer, exposeProcessMetrics bool) {
	set.WritePrometheus(w)
	if exposeProcessMetrics {
		vm.WriteProcessMetrics(w)
	}
}
