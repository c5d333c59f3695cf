package exchange

import (
	"context"
	"errors"
	"time"
)

// Exchange - унифицированный интерфейс биржи для исполнения ордеров.
// Клиент создаётся на пользователя (у каждого свой ключ) и закрывается
// после использования.
type Exchange interface {
	// Connect сохраняет ключи пользователя. Сетевых вызовов не делает.
	Connect(apiKey, secret string) error

	// GetName возвращает имя биржи
	GetName() string

	// PlaceMarketOrder размещает рыночный ордер на споте.
	// symbol - в любом виде (BTC/USDT, BTCUSDT), side - BUY или SELL.
	PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error)

	// Close освобождает ресурсы клиента
	Close() error
}

// Order - результат размещения ордера на бирже
type Order struct {
	ID           string    `json:"id"` // идентификатор исполнения на бирже
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Quantity     float64   `json:"quantity"`
	FilledQty    float64   `json:"filled_qty"`
	AvgFillPrice float64   `json:"avg_fill_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return e.Exchange + ": " + e.Message + " (code " + e.Code + ")"
	}
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Стороны ордера
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Статусы ордера на бирже
const (
	OrderStatusFilled   = "filled"
	OrderStatusPartial  = "partial"
	OrderStatusNew      = "new"
	OrderStatusRejected = "rejected" // отменён или истёк без исполнения
)

// Ошибки адаптера
var (
	ErrNotConfigured       = errors.New("exchange credential not configured")
	ErrUnsupportedExchange = errors.New("unsupported exchange")
	ErrNotConnected        = errors.New("exchange client is not connected")
	ErrInvalidQuantity     = errors.New("order quantity must be positive")
	ErrInvalidSide         = errors.New("order side must be BUY or SELL")
)

// validateOrder - общие проверки перед отправкой ордера
func validateOrder(side string, qty float64) error {
	if side != SideBuy && side != SideSell {
		return ErrInvalidSide
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
