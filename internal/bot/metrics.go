package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики монитора и исполнения ордеров
// ============================================================

// ============ Метрики латентности ============

// TickDuration - длительность одного прохода монитора
var TickDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "limitbot",
		Subsystem: "monitor",
		Name:      "tick_duration_ms",
		Help:      "Duration of one monitor tick in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 15000},
	},
)

// OrderExecutionLatency - время исполнения ордера на бирже
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "limitbot",
		Subsystem: "trading",
		Name:      "order_execution_latency_ms",
		Help:      "Time to execute order on exchange in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000, 10000},
	},
	[]string{"exchange", "side"},
)

// ============ Счётчики событий ============

// OrderChecks - результаты проверки открытых лимитных ордеров
var OrderChecks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "monitor",
		Name:      "order_checks_total",
		Help:      "Open limit order evaluations by result",
	},
	[]string{"result"}, // waiting, triggered, oracle_error, resolve_error
)

// OrderExecutions - финальные статусы исполнений
var OrderExecutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "trading",
		Name:      "order_executions_total",
		Help:      "Order executions by order type and result",
	},
	[]string{"type", "result"}, // result: filled, mock, failed
)

// PersistErrors - ошибки записи в хранилище ордеров
var PersistErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "store",
		Name:      "persist_errors_total",
		Help:      "Order store read or write failures",
	},
	[]string{"op"}, // snapshot, commit
)

// NotificationFailures - неудачные уведомления пользователям
var NotificationFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Notifications that could not be delivered",
	},
)

// PanicsRecovered - паники при вызове биржи
var PanicsRecovered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "trading",
		Name:      "panics_recovered_total",
		Help:      "Panics recovered during order execution",
	},
	[]string{"exchange"},
)

// GuardRejections - ввод отклонён как возможный секрет
var GuardRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "limitbot",
		Subsystem: "guard",
		Name:      "rejections_total",
		Help:      "Inputs rejected as suspected secrets",
	},
	[]string{"field", "reason"},
)

// ============ Метрики состояния ============

// OpenLimitOrders - количество открытых лимитных ордеров на последнем тике
var OpenLimitOrders = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "limitbot",
		Subsystem: "monitor",
		Name:      "open_limit_orders",
		Help:      "Open limit orders seen on the last tick",
	},
)

// PendingCommits - исполненные ордера, статус которых ещё не записан
var PendingCommits = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "limitbot",
		Subsystem: "monitor",
		Name:      "pending_commits",
		Help:      "Executed orders whose terminal status is not yet persisted",
	},
)

// VaultEncryptionEnabled - 1 если ключи бирж шифруются, 0 в passthrough
var VaultEncryptionEnabled = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "limitbot",
		Name:      "vault_encryption_enabled",
		Help:      "Whether exchange credentials are encrypted at rest (1) or stored as is (0)",
	},
)

// ============ Вспомогательные функции ============

// RecordExecution записывает результат исполнения
func RecordExecution(orderType, result string) {
	OrderExecutions.WithLabelValues(orderType, result).Inc()
}

// RecordOrderCheck записывает результат проверки лимитного ордера
func RecordOrderCheck(result string) {
	OrderChecks.WithLabelValues(result).Inc()
}

// RecordGuardRejection записывает отклонённый ввод
func RecordGuardRejection(field, reason string) {
	GuardRejections.WithLabelValues(field, reason).Inc()
}

// SetVaultMode обновляет gauge режима хранилища ключей
func SetVaultMode(encrypted bool) {
	if encrypted {
		VaultEncryptionEnabled.Set(1)
	} else {
		VaultEncryptionEnabled.Set(0)
	}
}
