package models

import (
	"strings"
	"time"
)

// Order представляет рыночный или лимитный ордер пользователя
type Order struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	Symbol     string     `json:"symbol" db:"symbol"`                     // BTCUSDT или BTC/USDT
	Side       string     `json:"side" db:"side"`                         // BUY, SELL
	Amount     float64    `json:"amount" db:"amount"`                     // количество базового актива
	Type       string     `json:"type" db:"type"`                         // market, limit
	Target     float64    `json:"target,omitempty" db:"target"`           // только для limit
	Status     string     `json:"status" db:"status"`                     // open, filled(<id>), filled (mock), failed:<причина>
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExecutedAt *time.Time `json:"executed_at,omitempty" db:"executed_at"` // момент записи финального статуса
}

// Типы ордеров
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Стороны ордера
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Статусы ордера.
// open - единственный нефинальный статус, filled* и failed* записываются один раз.
const (
	OrderStatusOpen       = "open"
	OrderStatusFilledMock = "filled (mock)"

	orderStatusFilledPrefix = "filled"
	orderStatusFailedPrefix = "failed:"
)

// FilledStatus - статус исполнения с идентификатором сделки на бирже
func FilledStatus(executionID string) string {
	return "filled(" + executionID + ")"
}

// FailedStatus - статус ошибки исполнения
func FailedStatus(reason string) string {
	return orderStatusFailedPrefix + reason
}

// IsTerminalStatus проверяет, финальный ли статус
func IsTerminalStatus(status string) bool {
	return strings.HasPrefix(status, orderStatusFilledPrefix) || strings.HasPrefix(status, orderStatusFailedPrefix)
}

// IsFilledStatus - ордер исполнен (в том числе в mock-режиме)
func IsFilledStatus(status string) bool {
	return strings.HasPrefix(status, orderStatusFilledPrefix)
}

// IsFailedStatus - исполнение завершилось ошибкой
func IsFailedStatus(status string) bool {
	return strings.HasPrefix(status, orderStatusFailedPrefix)
}

// IsOpen - ордер ожидает исполнения
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// IsOpenLimit - открытый лимитный ордер, который проверяет монитор
func (o *Order) IsOpenLimit() bool {
	return o.Type == OrderTypeLimit && o.IsOpen()
}

// Triggered проверяет условие срабатывания лимитного ордера:
// BUY при цене <= target, SELL при цене >= target
func (o *Order) Triggered(price float64) bool {
	switch o.Side {
	case SideBuy:
		return price <= o.Target
	case SideSell:
		return price >= o.Target
	default:
		return false
	}
}

// Clone возвращает независимую копию ордера
func (o Order) Clone() Order {
	if o.ExecutedAt != nil {
		t := *o.ExecutedAt
		o.ExecutedAt = &t
	}
	return o
}

// OrderSnapshot - полное состояние хранилища ордеров.
// NextID никогда не уменьшается, поэтому id не переиспользуются
// даже после удаления записей вручную.
type OrderSnapshot struct {
	NextID int64   `json:"next_id"`
	Orders []Order `json:"orders"`
}

// Clone возвращает глубокую копию снапшота
func (s *OrderSnapshot) Clone() *OrderSnapshot {
	out := &OrderSnapshot{NextID: s.NextID, Orders: make([]Order, len(s.Orders))}
	for i := range s.Orders {
		out.Orders[i] = s.Orders[i].Clone()
	}
	return out
}

// Find возвращает индекс ордера или -1
func (s *OrderSnapshot) Find(id int64) int {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}
