package exchange

import "strings"

// quoteLength - длина котируемой валюты для символов без разделителя
const quoteLength = 4

// SplitSymbol делит символ на базовую и котируемую валюту.
//
// Символ с "/" делится по нему. Без разделителя котируемой валютой
// считаются последние 4 символа: BTCUSDT -> BTC/USDT. Для трёхбуквенных
// котировок это неверно (ETHBTC -> ET/HBTC), список рынков не загружается.
// Символ из 4 и менее знаков целиком считается котируемой валютой.
// В вызовы бирж идёт VenueSymbol, который только убирает разделитель,
// так что ошибка деления на ордера не влияет.
func SplitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	if i := strings.Index(s, "/"); i >= 0 {
		return s[:i], s[i+1:]
	}

	if len(s) <= quoteLength {
		return "", s
	}

	return s[:len(s)-quoteLength], s[len(s)-quoteLength:]
}

// NormalizeSymbol приводит символ к виду BASE/QUOTE.
// Символ с "/" возвращается как есть.
func NormalizeSymbol(symbol string) string {
	if strings.Contains(symbol, "/") {
		return symbol
	}
	base, quote := SplitSymbol(symbol)
	if base == "" {
		return quote
	}
	return base + "/" + quote
}

// VenueSymbol - символ в формате REST API бирж (BTCUSDT)
func VenueSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
}
