package exchange

import (
	"context"
	"hash/fnv"
	"strings"
)

// PriceOracle - источник референсной цены для лимитных ордеров
type PriceOracle interface {
	GetReferencePrice(ctx context.Context, symbol string) (float64, error)
}

// HashOracle - детерминированный источник цены без рыночных данных.
// Цена выводится из FNV-1a хеша нормализованного символа и одинакова
// для BTCUSDT, btc/usdt и BTC/USDT. Нужен для демо и тестов, торговать по нему нельзя.
type HashOracle struct{}

// NewHashOracle создаёт HashOracle
func NewHashOracle() *HashOracle {
	return &HashOracle{}
}

// диапазон цен HashOracle: [minHashPrice, minHashPrice + hashPriceSpan/100)
const (
	minHashPrice  = 1.0
	hashPriceSpan = 5_000_000
)

func (o *HashOracle) GetReferencePrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(NormalizeSymbol(strings.ToUpper(strings.TrimSpace(symbol)))))

	cents := h.Sum32() % hashPriceSpan
	return minHashPrice + float64(cents)/100, nil
}
