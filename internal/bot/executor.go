package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/repository"
	"limitbot/pkg/utils"
)

// Результаты исполнения для метрик
const (
	resultFilled = "filled"
	resultMock   = "mock"
	resultFailed = "failed"
)

// maxReasonLength - ограничение длины причины в статусе failed:<причина>
const maxReasonLength = 200

// ExchangeResolver строит клиент биржи по ключу пользователя
type ExchangeResolver interface {
	Resolve(cred *models.ExchangeCredential) (exchange.Exchange, error)
}

// Execution - результат исполнения ордера
type Execution struct {
	Status      string // финальный статус ордера
	ExecutionID string // id сделки на бирже, пусто для mock и failed
	Exchange    string
	Err         error // причина failed
}

// Filled - ордер исполнен (в том числе в mock-режиме)
func (e Execution) Filled() bool {
	return models.IsFilledStatus(e.Status)
}

// Executor исполняет ордер рыночной заявкой на бирже пользователя.
// Используется монитором при срабатывании лимитного ордера
// и при размещении рыночного ордера.
//
// Повторов нет: любая ошибка биржи делает ордер failed.
type Executor struct {
	users    repository.UserStore
	resolver ExchangeResolver
	timeout  time.Duration
	log      *utils.Logger
}

// NewExecutor создает исполнитель. timeout ограничивает вызов биржи.
func NewExecutor(users repository.UserStore, resolver ExchangeResolver, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		users:    users,
		resolver: resolver,
		timeout:  timeout,
		log:      utils.L().WithComponent("executor"),
	}
}

// Execute исполняет ордер и возвращает финальный статус.
//
// Ошибка возвращается только если ключ пользователя не удалось прочитать
// из хранилища: биржа не вызывалась, ордер остаётся open.
// Нет пользователя или ключа - симулированное исполнение "filled (mock)".
func (e *Executor) Execute(ctx context.Context, order models.Order) (Execution, error) {
	user, err := e.users.GetUser(ctx, order.UserID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return Execution{}, fmt.Errorf("load user %d: %w", order.UserID, err)
	}

	var cred *models.ExchangeCredential
	if user != nil {
		cred = user.Exchange
	}

	ex, err := e.resolver.Resolve(cred)
	if errors.Is(err, exchange.ErrNotConfigured) {
		e.log.Info("no exchange configured, simulating fill",
			utils.OrderID(order.ID),
			utils.UserID(order.UserID),
		)
		return Execution{Status: models.OrderStatusFilledMock}, nil
	}
	if err != nil {
		return failedExecution(cred.ExchangeID, err), nil
	}
	defer ex.Close()

	return e.place(ctx, ex, order), nil
}

// place вызывает биржу. Паника клиента превращается в failed.
func (e *Executor) place(ctx context.Context, ex exchange.Exchange, order models.Order) (result Execution) {
	name := ex.GetName()

	defer func() {
		if r := recover(); r != nil {
			PanicsRecovered.WithLabelValues(name).Inc()
			e.log.Error("panic during order execution",
				utils.OrderID(order.ID),
				utils.Exchange(name),
				utils.Any("panic", r),
			)
			result = failedExecution(name, fmt.Errorf("panic: %v", r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	placed, err := ex.PlaceMarketOrder(callCtx, order.Symbol, order.Side, order.Amount)
	OrderExecutionLatency.WithLabelValues(name, order.Side).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		return failedExecution(name, err)
	}
	if placed == nil || placed.ID == "" {
		return failedExecution(name, errors.New("empty order id in response"))
	}
	if placed.Status == exchange.OrderStatusRejected {
		return failedExecution(name, fmt.Errorf("order %s rejected by %s", placed.ID, name))
	}

	return Execution{
		Status:      models.FilledStatus(placed.ID),
		ExecutionID: placed.ID,
		Exchange:    name,
	}
}

func failedExecution(exchangeName string, err error) Execution {
	return Execution{
		Status:   models.FailedStatus(failureReason(err)),
		Exchange: exchangeName,
		Err:      err,
	}
}

// failureReason - однострочная причина ошибки для статуса.
// Результат всегда валидный UTF-8 не длиннее maxReasonLength байт.
func failureReason(err error) string {
	reason := strings.ToValidUTF8(err.Error(), "?")
	reason = strings.Join(strings.Fields(reason), " ")
	if len(reason) > maxReasonLength {
		cut := maxReasonLength
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	return reason
}

// Result - метка результата для метрик: filled, mock, failed
func (e Execution) Result() string {
	switch {
	case e.Status == models.OrderStatusFilledMock:
		return resultMock
	case models.IsFilledStatus(e.Status):
		return resultFilled
	default:
		return resultFailed
	}
}
