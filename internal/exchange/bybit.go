package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"limitbot/pkg/ratelimit"
)

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitRecvWindow = "5000"
)

var bybitJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Bybit реализует Exchange для спота Bybit (API v5)
type Bybit struct {
	apiKey    string
	secretKey string
	baseURL   string

	httpClient *http.Client
	limits     *ratelimit.Registry
	now        func() time.Time
}

// NewBybit создает новый экземпляр Bybit
func NewBybit(opts Options) *Bybit {
	baseURL := opts.BybitBaseURL
	if baseURL == "" {
		baseURL = bybitBaseURL
	}
	return &Bybit{
		baseURL:    baseURL,
		httpClient: opts.httpClient(),
		limits:     opts.Limits,
		now:        time.Now,
	}
}

// sign создает подпись для запроса к Bybit API v5:
// HMAC-SHA256(timestamp + apiKey + recvWindow + payload)
func (b *Bybit) sign(timestamp, payload string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(timestamp + b.apiKey + bybitRecvWindow + payload))
	return hex.EncodeToString(h.Sum(nil))
}

// post выполняет подписанный POST запрос и возвращает поле result
func (b *Bybit) post(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	if err := b.limits.Wait(ctx, NameBybit); err != nil {
		return nil, err
	}

	body, err := bybitJSON.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(b.now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-SIGN", b.sign(timestamp, string(body)))
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Exchange: NameBybit, Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		RetCode int             `json:"retCode"`
		RetMsg  string          `json:"retMsg"`
		Result  json.RawMessage `json:"result"`
	}
	if err := bybitJSON.Unmarshal(raw, &envelope); err != nil {
		return nil, &ExchangeError{
			Exchange: NameBybit,
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  "unexpected response",
			Original: err,
		}
	}

	if envelope.RetCode != 0 {
		return nil, &ExchangeError{
			Exchange: NameBybit,
			Code:     strconv.Itoa(envelope.RetCode),
			Message:  envelope.RetMsg,
		}
	}

	return envelope.Result, nil
}

func (b *Bybit) Connect(apiKey, secret string) error {
	if apiKey == "" || secret == "" {
		return fmt.Errorf("bybit: api key and secret are required")
	}
	b.apiKey = apiKey
	b.secretKey = secret
	return nil
}

func (b *Bybit) GetName() string {
	return NameBybit
}

// PlaceMarketOrder размещает рыночный ордер на споте.
// Объём всегда в базовой валюте (marketUnit=baseCoin), в том числе для покупки.
func (b *Bybit) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	if b.apiKey == "" {
		return nil, ErrNotConnected
	}
	if err := validateOrder(side, qty); err != nil {
		return nil, err
	}

	bybitSide := "Buy"
	if side == SideSell {
		bybitSide = "Sell"
	}

	venueSymbol := VenueSymbol(symbol)
	params := map[string]string{
		"category":   "spot",
		"symbol":     venueSymbol,
		"side":       bybitSide,
		"orderType":  "Market",
		"qty":        strconv.FormatFloat(qty, 'f', -1, 64),
		"marketUnit": "baseCoin",
	}

	result, err := b.post(ctx, "/v5/order/create", params)
	if err != nil {
		return nil, err
	}

	var created struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := bybitJSON.Unmarshal(result, &created); err != nil {
		return nil, err
	}
	if created.OrderID == "" {
		return nil, &ExchangeError{Exchange: NameBybit, Message: "empty order id in response"}
	}

	// Рыночный ордер на споте исполняется сразу, детали исполнения не запрашиваем
	return &Order{
		ID:        created.OrderID,
		Symbol:    venueSymbol,
		Side:      side,
		Quantity:  qty,
		FilledQty: qty,
		Status:    OrderStatusFilled,
		CreatedAt: b.now(),
	}, nil
}

func (b *Bybit) Close() error {
	b.apiKey = ""
	b.secretKey = ""
	return nil
}
