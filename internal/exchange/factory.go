package exchange

import (
	"fmt"
	"net/http"
	"strings"

	"limitbot/pkg/ratelimit"
)

// Имена поддерживаемых бирж
const (
	NameBinance = "binance"
	NameBybit   = "bybit"
	NameMock    = "mock"
)

// SupportedExchanges - список поддерживаемых бирж
var SupportedExchanges = []string{
	NameBinance,
	NameBybit,
	NameMock,
}

// Options - общие зависимости адаптеров
type Options struct {
	HTTPClient     *http.Client        // nil = http.DefaultClient
	Limits         *ratelimit.Registry // nil = без ограничений
	BinanceBaseURL string              // пусто = боевой API
	BybitBaseURL   string
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

// NewExchange создает новый экземпляр биржи по имени
func NewExchange(name string, opts Options) (Exchange, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameBinance:
		return NewBinance(opts), nil
	case NameBybit:
		return NewBybit(opts), nil
	case NameMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExchange, name)
	}
}

// IsSupported проверяет, поддерживается ли биржа
func IsSupported(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, supported := range SupportedExchanges {
		if name == supported {
			return true
		}
	}
	return false
}
