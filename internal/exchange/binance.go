package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance"
	"github.com/adshao/go-binance/common"

	"limitbot/pkg/ratelimit"
)

// Binance реализует Exchange для спота Binance через go-binance
type Binance struct {
	client  *binance.Client
	baseURL string
	opts    Options
	limits  *ratelimit.Registry
	now     func() time.Time
}

// NewBinance создает новый экземпляр Binance
func NewBinance(opts Options) *Binance {
	return &Binance{
		baseURL: opts.BinanceBaseURL,
		opts:    opts,
		limits:  opts.Limits,
		now:     time.Now,
	}
}

func (b *Binance) Connect(apiKey, secret string) error {
	if apiKey == "" || secret == "" {
		return fmt.Errorf("binance: api key and secret are required")
	}

	client := binance.NewClient(apiKey, secret)
	client.HTTPClient = b.opts.httpClient()
	if b.baseURL != "" {
		client.BaseURL = b.baseURL
	}
	b.client = client
	return nil
}

func (b *Binance) GetName() string {
	return NameBinance
}

// PlaceMarketOrder размещает рыночный ордер на споте
func (b *Binance) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	if b.client == nil {
		return nil, ErrNotConnected
	}
	if err := validateOrder(side, qty); err != nil {
		return nil, err
	}
	if err := b.limits.Wait(ctx, NameBinance); err != nil {
		return nil, err
	}

	venueSymbol := VenueSymbol(symbol)
	binanceSide := binance.SideTypeBuy
	if side == SideSell {
		binanceSide = binance.SideTypeSell
	}

	response, err := b.client.NewCreateOrderService().
		Symbol(venueSymbol).
		Side(binanceSide).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(qty, 'f', -1, 64)).
		Do(ctx)
	if err != nil {
		return nil, wrapBinanceError(err)
	}

	order := &Order{
		ID:        strconv.FormatInt(response.OrderID, 10),
		Symbol:    venueSymbol,
		Side:      side,
		Quantity:  qty,
		Status:    binanceStatus(response.Status),
		CreatedAt: b.now(),
	}

	order.FilledQty, _ = strconv.ParseFloat(response.ExecutedQuantity, 64)
	if quote, err := strconv.ParseFloat(response.CummulativeQuoteQuantity, 64); err == nil && order.FilledQty > 0 {
		order.AvgFillPrice = quote / order.FilledQty
	}

	return order, nil
}

func (b *Binance) Close() error {
	b.client = nil
	return nil
}

// wrapBinanceError приводит ошибку go-binance к ExchangeError
func wrapBinanceError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &ExchangeError{
			Exchange: NameBinance,
			Code:     strconv.FormatInt(apiErr.Code, 10),
			Message:  apiErr.Message,
			Original: err,
		}
	}
	return &ExchangeError{Exchange: NameBinance, Message: "request failed", Original: err}
}

func binanceStatus(s binance.OrderStatusType) string {
	switch s {
	case binance.OrderStatusTypeFilled:
		return OrderStatusFilled
	case binance.OrderStatusTypePartiallyFilled:
		return OrderStatusPartial
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		return OrderStatusRejected
	default:
		return OrderStatusNew
	}
}
