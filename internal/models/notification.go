package models

import "time"

// Notification - событие для пользователя (websocket, e-mail)
type Notification struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	OrderID   int64     `json:"order_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Типы уведомлений
const (
	NotificationTypeOrderFilled = "ORDER_FILLED"
	NotificationTypeOrderFailed = "ORDER_FAILED"
	NotificationTypeInfo        = "INFO"
)

// NotificationTypeForStatus выбирает тип уведомления по финальному статусу ордера
func NotificationTypeForStatus(status string) string {
	switch {
	case IsFilledStatus(status):
		return NotificationTypeOrderFilled
	case IsFailedStatus(status):
		return NotificationTypeOrderFailed
	default:
		return NotificationTypeInfo
	}
}
