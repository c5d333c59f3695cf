package notify

import (
	"context"
	"errors"
	"time"

	"limitbot/internal/models"
	"limitbot/pkg/utils"
)

// Notifier доставляет пользователю текстовое сообщение.
// Доставка best-effort: ошибка только логируется вызывающим.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// EventNotifier - Notifier, которому нужен тип события и id ордера
type EventNotifier interface {
	NotifyEvent(ctx context.Context, n models.Notification) error
}

// Send отправляет уведомление через NotifyEvent, если канал его поддерживает
func Send(ctx context.Context, notifier Notifier, n models.Notification) error {
	if notifier == nil {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if en, ok := notifier.(EventNotifier); ok {
		return en.NotifyEvent(ctx, n)
	}
	return notifier.Notify(ctx, n.UserID, n.Message)
}

// ============================================================
// LogNotifier
// ============================================================

// LogNotifier пишет уведомления в лог. Используется, когда других каналов нет.
type LogNotifier struct {
	log *utils.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: utils.L().WithComponent("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, userID int64, message string) error {
	n.log.Info("notification", utils.UserID(userID), utils.String("message", message))
	return nil
}

func (n *LogNotifier) NotifyEvent(ctx context.Context, ev models.Notification) error {
	n.log.Info("notification",
		utils.UserID(ev.UserID),
		utils.OrderID(ev.OrderID),
		utils.String("type", ev.Type),
		utils.String("message", ev.Message),
	)
	return nil
}

// ============================================================
// Multi
// ============================================================

// Multi рассылает уведомление во все каналы.
// Ошибка одного канала не мешает остальным.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID int64, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, userID, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyEvent(ctx context.Context, ev models.Notification) error {
	var errs []error
	for _, n := range m {
		if err := Send(ctx, n, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
