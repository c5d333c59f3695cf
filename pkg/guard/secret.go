// Package guard распознаёт секретный материал (приватные ключи, seed-фразы)
// в свободном тексте до того, как он будет где-либо сохранён.
package guard

import (
	"regexp"
	"strings"
)

// Classification - результат проверки текста
type Classification int

const (
	// Clean - текст можно принимать
	Clean Classification = iota
	// SuspectedSecret - текст похож на секрет, принимать нельзя
	SuspectedSecret
)

// String возвращает имя классификации для логов и метрик
func (c Classification) String() string {
	if c == SuspectedSecret {
		return "suspected_secret"
	}
	return "clean"
}

// Причины срабатывания (только для метрик, сам текст никогда не логируется)
const (
	ReasonNone        = ""
	ReasonKeyword     = "keyword"
	ReasonHexKey      = "hex_key"
	ReasonPhraseShape = "phrase_shape"
)

// Границы количества слов для фразы восстановления (включительно)
const (
	MinPhraseWords = 10
	MaxPhraseWords = 24
)

var (
	keywordRe = regexp.MustCompile(`(?i)(private key|mnemonic|seed)`)

	// 64 hex символа подряд, с необязательным 0x, не являющиеся частью более длинной hex-последовательности
	hexKeyRe = regexp.MustCompile(`(?:^|[^0-9A-Fa-fxX])(?:0[xX])?[0-9A-Fa-f]{64}(?:$|[^0-9A-Fa-f])`)
)

// Classify проверяет текст на признаки секрета.
//
// Срабатывает при любом из условий:
//   - литералы "private key", "mnemonic", "seed" без учёта регистра;
//   - ровно 64 hex символа подряд (опционально с префиксом 0x);
//   - от 10 до 24 слов через пробел (форма seed-фразы).
//
// Последнее правило намеренно даёт ложные срабатывания на обычных
// предложениях такой длины: лучше попросить ввести адрес ещё раз,
// чем сохранить seed-фразу как публичные данные.
func Classify(text string) Classification {
	if Reason(text) != ReasonNone {
		return SuspectedSecret
	}
	return Clean
}

// Reason возвращает правило, по которому текст признан секретом, или ReasonNone
func Reason(text string) string {
	if keywordRe.MatchString(text) {
		return ReasonKeyword
	}
	if hexKeyRe.MatchString(text) {
		return ReasonHexKey
	}
	words := len(strings.Fields(text))
	if words >= MinPhraseWords && words <= MaxPhraseWords {
		return ReasonPhraseShape
	}
	return ReasonNone
}

// IsSuspected - сокращение для Classify(text) == SuspectedSecret
func IsSuspected(text string) bool {
	return Classify(text) == SuspectedSecret
}
