package service

import (
	"context"
	"fmt"
	"strings"

	"limitbot/internal/bot"
	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/repository"
	"limitbot/pkg/utils"
)

// OrderService - размещение и просмотр ордеров
type OrderService struct {
	orders   OrderRepository
	users    repository.UserStore
	executor MarketExecutor
	oracle   exchange.PriceOracle
}

// NewOrderService создает сервис ордеров
func NewOrderService(orders OrderRepository, users repository.UserStore, executor MarketExecutor, oracle exchange.PriceOracle) *OrderService {
	return &OrderService{
		orders:   orders,
		users:    users,
		executor: executor,
		oracle:   oracle,
	}
}

// OrderRequest - параметры ордера из пользовательского ввода
type OrderRequest struct {
	UserID int64
	Symbol string
	Side   string
	Amount string
	Target string // только для лимитного ордера
}

// parse проверяет общие поля ордера. Ошибка не меняет состояние.
func (r OrderRequest) parse() (models.Order, error) {
	symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
	if err := utils.ValidateSymbol(symbol); err != nil {
		return models.Order{}, err
	}
	side, err := utils.NormalizeSide(r.Side)
	if err != nil {
		return models.Order{}, err
	}
	amount, err := utils.ParseAmount(r.Amount)
	if err != nil {
		return models.Order{}, err
	}
	return models.Order{
		UserID: r.UserID,
		Symbol: symbol,
		Side:   side,
		Amount: amount,
	}, nil
}

func (s *OrderService) requireUser(ctx context.Context, userID int64) error {
	_, err := s.users.GetUser(ctx, userID)
	return err
}

// PlaceMarketOrder записывает ордер и сразу исполняет его.
// Возвращает ордер с финальным статусом.
func (s *OrderService) PlaceMarketOrder(ctx context.Context, req OrderRequest) (models.Order, error) {
	order, err := req.parse()
	if err != nil {
		return models.Order{}, err
	}
	if err := s.requireUser(ctx, order.UserID); err != nil {
		return models.Order{}, err
	}

	order.Type = models.OrderTypeMarket
	order, err = s.orders.Create(ctx, order)
	if err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	log := utils.L().WithComponent("orders").WithOrderID(order.ID)

	result, err := s.executor.Execute(context.WithoutCancel(ctx), order)
	if err != nil {
		// Биржа не вызывалась, рыночный ордер не может остаться open
		log.Error("market order not executed", utils.Err(err))
		result = bot.Execution{Status: models.FailedStatus("credentials unavailable")}
	}
	bot.RecordExecution(models.OrderTypeMarket, result.Result())

	updated, err := s.orders.CompareAndSetStatus(context.WithoutCancel(ctx), order.ID, models.OrderStatusOpen, result.Status)
	if err != nil {
		log.Error("failed to persist market order status", utils.Status(result.Status), utils.Err(err))
		return models.Order{}, fmt.Errorf("persist order %d status: %w", order.ID, err)
	}

	log.Info("market order executed",
		utils.UserID(order.UserID),
		utils.Symbol(order.Symbol),
		utils.Side(order.Side),
		utils.Amount(order.Amount),
		utils.Status(updated.Status),
	)
	return updated, nil
}

// PlaceLimitOrder записывает лимитный ордер в статусе open.
// Исполнение выполняет монитор.
func (s *OrderService) PlaceLimitOrder(ctx context.Context, req OrderRequest) (models.Order, error) {
	order, err := req.parse()
	if err != nil {
		return models.Order{}, err
	}
	target, err := utils.ParsePrice(req.Target)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.requireUser(ctx, order.UserID); err != nil {
		return models.Order{}, err
	}

	order.Type = models.OrderTypeLimit
	order.Target = target
	order.Status = models.OrderStatusOpen

	order, err = s.orders.Create(ctx, order)
	if err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	utils.Info("limit order placed",
		utils.OrderID(order.ID),
		utils.UserID(order.UserID),
		utils.Symbol(order.Symbol),
		utils.Side(order.Side),
		utils.Target(order.Target),
	)
	return order, nil
}

// ListOrders возвращает ордера пользователя от новых к старым
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ReferencePrice возвращает цену оракула для символа
func (s *OrderService) ReferencePrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := utils.ValidateSymbol(symbol); err != nil {
		return 0, err
	}
	return s.oracle.GetReferencePrice(ctx, symbol)
}
