package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"limitbot/pkg/ratelimit"
)

func newTestBybit(t *testing.T, handler http.HandlerFunc) *Bybit {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b := NewBybit(Options{
		HTTPClient:   srv.Client(),
		BybitBaseURL: srv.URL,
		Limits:       ratelimit.NewRegistry(100, 100),
	})
	b.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	if err := b.Connect("test-key", "test-secret"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return b
}

func TestBybitPlaceMarketOrder(t *testing.T) {
	var gotBody map[string]string

	b := newTestBybit(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/order/create" || r.Method != http.MethodPost {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}

		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("тело не JSON: %v", err)
		}

		// проверяем подпись
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		mac := hmac.New(sha256.New, []byte("test-secret"))
		mac.Write([]byte(ts + "test-key" + bybitRecvWindow + string(raw)))
		if r.Header.Get("X-BAPI-SIGN") != hex.EncodeToString(mac.Sum(nil)) {
			t.Error("неверная подпись запроса")
		}
		if r.Header.Get("X-BAPI-API-KEY") != "test-key" {
			t.Error("нет заголовка API ключа")
		}

		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"1321003749386327552","orderLinkId":""}}`))
	})

	order, err := b.PlaceMarketOrder(context.Background(), "BTC/USDT", SideSell, 0.25)
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}

	if order.ID != "1321003749386327552" {
		t.Errorf("order.ID = %q", order.ID)
	}
	want := map[string]string{
		"category":   "spot",
		"symbol":     "BTCUSDT",
		"side":       "Sell",
		"orderType":  "Market",
		"qty":        "0.25",
		"marketUnit": "baseCoin",
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("параметр %s = %q, ожидали %q", k, gotBody[k], v)
		}
	}
}

func TestBybitAPIError(t *testing.T) {
	b := newTestBybit(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":170131,"retMsg":"Insufficient balance.","result":{}}`))
	})

	_, err := b.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, 1)

	var exErr *ExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("ожидали ExchangeError, получили %v", err)
	}
	if exErr.Code != "170131" || exErr.Message != "Insufficient balance." {
		t.Errorf("неожиданная ошибка: %+v", exErr)
	}
}

func TestBybitMalformedResponse(t *testing.T) {
	b := newTestBybit(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := b.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, 1)

	var exErr *ExchangeError
	if !errors.As(err, &exErr) || exErr.Code != "502" {
		t.Errorf("ожидали ExchangeError с кодом 502, получили %v", err)
	}
}

func TestBybitRequiresConnect(t *testing.T) {
	b := NewBybit(Options{})

	if _, err := b.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ожидали ErrNotConnected, получили %v", err)
	}
	if err := b.Connect("key", ""); err == nil {
		t.Error("Connect без секрета должен вернуть ошибку")
	}
}
