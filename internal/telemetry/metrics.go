package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики планировщика. Регистрируются в default registry,
// каждый бинарник отдаёт их на /metrics.
var (
	schedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metronome_scheduler_ticks_total",
			Help: "Total number of scheduler ticks by outcome",
		},
		[]string{"status"},
	)

	schedulerDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metronome_scheduler_dispatch_total",
			Help: "Total number of report jobs dispatched to the queue",
		},
		[]string{"trigger", "status"},
	)

	schedulerConsecutiveErrors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "metronome_scheduler_consecutive_errors",
			Help: "Current consecutive tick error count",
		},
	)

	leaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metronome_lease_operations_total",
			Help: "Total number of lease operations by outcome",
		},
		[]string{"operation", "status"},
	)

	leaseHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "metronome_lease_held",
			Help: "Whether this instance currently believes it holds the scheduler lease",
		},
	)
)

// RecordTick учитывает результат тика: ok, skipped, error.
func RecordTick(status string) {
	schedulerTicksTotal.WithLabelValues(status).Inc()
}

// RecordDispatch учитывает отправку job в очередь.
func RecordDispatch(trigger, status string) {
	schedulerDispatchTotal.WithLabelValues(trigger, status).Inc()
}

// SetConsecutiveErrors выставляет текущий счётчик ошибок тиков.
func SetConsecutiveErrors(n int) {
	schedulerConsecutiveErrors.Set(float64(n))
}

// RecordLeaseOperation учитывает операцию с lease: acquire, renew, release.
func RecordLeaseOperation(operation, status string) {
	leaseOperationsTotal.WithLabelValues(operation, status).Inc()
}

// SetLeaseHeld выставляет флаг владения lease этим экземпляром.
func SetLeaseHeld(held bool) {
	if held {
		leaseHeld.Set(1)
		return
	}
	leaseHeld.Set(0)
}
