package notify

import (
	"time"

	"limitbot/internal/models"
)

// MessageType - тип WebSocket сообщения
type MessageType string

const (
	// MessageTypeNotification - уведомление о событии ордера
	MessageTypeNotification MessageType = "notification"
	// MessageTypeHello - первое сообщение после подключения
	MessageTypeHello MessageType = "hello"
)

// NotificationMessage - сообщение с уведомлением
type NotificationMessage struct {
	Type MessageType      `json:"type"`
	Data NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	Type      string `json:"type"` // ORDER_FILLED, ORDER_FAILED, INFO
	OrderID   int64  `json:"order_id,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// HelloMessage подтверждает подписку
type HelloMessage struct {
	Type   MessageType `json:"type"`
	UserID int64       `json:"user_id"`
}

// NewNotificationMessage создает сообщение из модели уведомления
func NewNotificationMessage(n models.Notification) *NotificationMessage {
	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &NotificationMessage{
		Type: MessageTypeNotification,
		Data: NotificationData{
			Type:      n.Type,
			OrderID:   n.OrderID,
			Message:   n.Message,
			Timestamp: ts.UnixMilli(),
		},
	}
}
