package utils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Ошибки валидации
var (
	ErrInvalidAmount        = errors.New("amount must be a positive number")
	ErrInvalidPrice         = errors.New("price must be a positive number")
	ErrInvalidSide          = errors.New("side must be BUY or SELL")
	ErrInvalidSymbol        = errors.New("invalid symbol format")
	ErrInvalidWalletName    = errors.New("wallet name must be 1-30 letters or digits")
	ErrInvalidWalletAddress = errors.New("wallet address is too short")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrEmptyUsername        = errors.New("username cannot be empty")
)

// Стороны сделки
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// MinWalletAddressLength - минимальная длина адреса кошелька
const MinWalletAddressLength = 10

var (
	symbolRegex     = regexp.MustCompile(`^[A-Za-z0-9]{1,15}([/_-]?[A-Za-z0-9]{1,15})?$`)
	walletNameRegex = regexp.MustCompile(`^[A-Za-z0-9]{1,30}$`)
	emailRegex      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)
)

// ParseAmount разбирает количество из пользовательского ввода.
// Принимает только конечные положительные числа.
func ParseAmount(s string) (float64, error) {
	v, err := parsePositive(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParsePrice разбирает целевую цену лимитного ордера
func ParsePrice(s string) (float64, error) {
	v, err := parsePositive(s)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("not a positive finite number: %q", s)
	}
	return v, nil
}

// NormalizeSide приводит сторону к верхнему регистру и проверяет её
func NormalizeSide(side string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(side))
	if s != SideBuy && s != SideSell {
		return "", ErrInvalidSide
	}
	return s, nil
}

// ValidateSymbol проверяет формат символа (BTCUSDT, BTC/USDT, BTC-USDT)
func ValidateSymbol(symbol string) error {
	if len(symbol) < 2 || !symbolRegex.MatchString(symbol) {
		return ErrInvalidSymbol
	}
	return nil
}

// ValidateWalletName проверяет имя кошелька
func ValidateWalletName(name string) error {
	if !walletNameRegex.MatchString(name) {
		return ErrInvalidWalletName
	}
	return nil
}

// ValidateWalletAddress проверяет длину адреса.
// Проверка на секреты выполняется отдельно (guard).
func ValidateWalletAddress(address string) error {
	if len(strings.TrimSpace(address)) < MinWalletAddressLength {
		return ErrInvalidWalletAddress
	}
	return nil
}

// ValidateEmail проверяет адрес для уведомлений
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeExchange - имя биржи в нижнем регистре без пробелов
func NormalizeExchange(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidationError - ошибка валидации конкретного поля
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors - набор ошибок валидации
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// Add добавляет ошибку поля
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddError добавляет ошибку, если она не nil
func (e *ValidationErrors) AddError(field string, err error) {
	if err != nil {
		e.Add(field, err.Error())
	}
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Err возвращает nil для пустого набора
func (e ValidationErrors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
