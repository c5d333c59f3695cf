package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/notify"
	"limitbot/internal/repository"
	"limitbot/pkg/utils"
)

// Результаты проверки ордера для метрик
const (
	checkWaiting      = "waiting"
	checkTriggered    = "triggered"
	checkOracleError  = "oracle_error"
	checkResolveError = "resolve_error"
)

// MonitorConfig - параметры монитора лимитных ордеров
type MonitorConfig struct {
	Interval      time.Duration // период опроса, по умолчанию 15s
	OracleTimeout time.Duration
	NotifyTimeout time.Duration
}

// TickResult - итог одного прохода
type TickResult struct {
	Checked   int // открытых лимитных ордеров проверено
	Triggered int
	Filled    int
	Failed    int
	Skipped   int // ошибки оракула, чтения ключа или записи
	Committed int // ранее не записанные статусы, записанные на этом тике
}

// Monitor периодически проверяет открытые лимитные ордера и исполняет
// сработавшие рыночной заявкой.
//
// Сработавшие ордера обрабатываются последовательно: медленная биржа
// задерживает проверку остальных ордеров на этом тике.
// Статус записывается через CAS из open, поэтому ордер переходит
// в финальный статус не более одного раза.
type Monitor struct {
	store    *repository.OrderStore
	oracle   exchange.PriceOracle
	executor *Executor
	notifier notify.Notifier
	cfg      MonitorConfig
	log      *utils.Logger

	// Исполненные ордера, статус которых не удалось записать.
	// Повторно записываются на следующем тике без повторного исполнения.
	pending map[int64]pendingCommit

	notifyWG sync.WaitGroup
	runMu    sync.Mutex
}

type pendingCommit struct {
	order  models.Order
	result Execution
	price  float64
}

// NewMonitor создает монитор
func NewMonitor(store *repository.OrderStore, oracle exchange.PriceOracle, executor *Executor, notifier notify.Notifier, cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 5 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &Monitor{
		store:    store,
		oracle:   oracle,
		executor: executor,
		notifier: notifier,
		cfg:      cfg,
		log:      utils.L().WithComponent("monitor"),
		pending:  make(map[int64]pendingCommit),
	}
}

// Run выполняет тики с фиксированным интервалом до отмены контекста.
// Первый тик выполняется сразу. Отмена прерывает тик между ордерами,
// ордер на бирже дорабатывается и записывается.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started", utils.Dur("interval", m.cfg.Interval))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.Tick(ctx)

		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick выполняет один проход по открытым лимитным ордерам
func (m *Monitor) Tick(ctx context.Context) TickResult {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	start := time.Now()
	defer func() {
		TickDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	var res TickResult
	res.Committed = m.flushPending(ctx)

	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		PersistErrors.WithLabelValues("snapshot").Inc()
		m.log.Error("failed to read order store", utils.Err(err))
		return res
	}

	open := make([]models.Order, 0)
	for _, o := range snap.Orders {
		if o.IsOpenLimit() {
			open = append(open, o)
		}
	}
	OpenLimitOrders.Set(float64(len(open)))

	for _, order := range open {
		if ctx.Err() != nil {
			break
		}
		if _, ok := m.pending[order.ID]; ok {
			continue
		}

		res.Checked++
		m.evaluate(ctx, order, &res)
	}

	if res.Triggered > 0 || res.Skipped > 0 {
		m.log.Info("tick finished",
			utils.Int("checked", res.Checked),
			utils.Int("triggered", res.Triggered),
			utils.Int("filled", res.Filled),
			utils.Int("failed", res.Failed),
			utils.Int("skipped", res.Skipped),
			utils.Latency(float64(time.Since(start).Milliseconds())),
		)
	}

	return res
}

// evaluate проверяет один ордер. Ошибки не прерывают тик.
func (m *Monitor) evaluate(ctx context.Context, order models.Order, res *TickResult) {
	log := m.log.WithOrderID(order.ID)

	oracleCtx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout)
	price, err := m.oracle.GetReferencePrice(oracleCtx, order.Symbol)
	cancel()
	if err != nil {
		res.Skipped++
		RecordOrderCheck(checkOracleError)
		log.Warn("reference price unavailable", utils.Symbol(order.Symbol), utils.Err(err))
		return
	}

	if !order.Triggered(price) {
		RecordOrderCheck(checkWaiting)
		return
	}

	res.Triggered++
	RecordOrderCheck(checkTriggered)
	log.Info("limit order triggered",
		utils.Symbol(order.Symbol),
		utils.Side(order.Side),
		utils.Price(price),
		utils.Target(order.Target),
	)

	// Начатое исполнение доводится до записи даже при остановке процесса
	execCtx := context.WithoutCancel(ctx)

	result, err := m.executor.Execute(execCtx, order)
	if err != nil {
		res.Skipped++
		RecordOrderCheck(checkResolveError)
		log.Error("failed to resolve credentials", utils.UserID(order.UserID), utils.Err(err))
		return
	}

	RecordExecution(models.OrderTypeLimit, result.Result())
	if result.Filled() {
		res.Filled++
	} else {
		res.Failed++
		log.Warn("limit order execution failed", utils.Exchange(result.Exchange), utils.Err(result.Err))
	}

	if !m.commit(execCtx, pendingCommit{order: order, result: result, price: price}) {
		res.Skipped++
	}
}

// commit записывает финальный статус и отправляет уведомление.
// При ошибке записи результат сохраняется для следующего тика.
func (m *Monitor) commit(ctx context.Context, pc pendingCommit) bool {
	log := m.log.WithOrderID(pc.order.ID)

	updated, err := m.store.CompareAndSetStatus(ctx, pc.order.ID, models.OrderStatusOpen, pc.result.Status)
	switch {
	case err == nil:
		delete(m.pending, pc.order.ID)
		PendingCommits.Set(float64(len(m.pending)))
		log.Info("order status committed", utils.Status(updated.Status))
		m.notifyAsync(updated, pc.price)
		return true

	case errors.Is(err, repository.ErrOrderTerminal),
		errors.Is(err, repository.ErrStatusConflict),
		errors.Is(err, repository.ErrOrderNotFound):
		// Статус уже записан другим писателем или ордер удалён вручную
		delete(m.pending, pc.order.ID)
		PendingCommits.Set(float64(len(m.pending)))
		log.Warn("order status not committed", utils.Status(pc.result.Status), utils.Err(err))
		return true

	default:
		m.pending[pc.order.ID] = pc
		PendingCommits.Set(float64(len(m.pending)))
		PersistErrors.WithLabelValues("commit").Inc()
		log.Error("failed to persist order status", utils.Status(pc.result.Status), utils.Err(err))
		return false
	}
}

// flushPending повторяет запись ранее исполненных ордеров
func (m *Monitor) flushPending(ctx context.Context) int {
	committed := 0
	for _, pc := range m.pending {
		if m.commit(ctx, pc) {
			committed++
		}
	}
	return committed
}

// notifyAsync уведомляет владельца ордера вне критической секции.
// Ошибка доставки не влияет на статус ордера.
func (m *Monitor) notifyAsync(order models.Order, price float64) {
	if m.notifier == nil {
		return
	}

	n := models.Notification{
		Type:      models.NotificationTypeForStatus(order.Status),
		UserID:    order.UserID,
		OrderID:   order.ID,
		Message:   orderMessage(order, price),
		Timestamp: time.Now().UTC(),
	}

	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()
		defer func() {
			if r := recover(); r != nil {
				NotificationFailures.Inc()
				m.log.Error("panic in notifier", utils.OrderID(order.ID), utils.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.NotifyTimeout)
		defer cancel()

		if err := notify.Send(ctx, m.notifier, n); err != nil {
			NotificationFailures.Inc()
			m.log.Warn("notification failed", utils.OrderID(order.ID), utils.UserID(order.UserID), utils.Err(err))
		}
	}()
}

// Wait ожидает завершения отправки уведомлений
func (m *Monitor) Wait() {
	m.notifyWG.Wait()
}

// orderMessage - текст уведомления об исполнении лимитного ордера
func orderMessage(order models.Order, price float64) string {
	head := fmt.Sprintf("Limit order #%d %s %s %s at %s (target %s)",
		order.ID,
		order.Side,
		strconv.FormatFloat(order.Amount, 'f', -1, 64),
		order.Symbol,
		strconv.FormatFloat(price, 'f', -1, 64),
		strconv.FormatFloat(order.Target, 'f', -1, 64),
	)
	return head + ": " + order.Status
}
