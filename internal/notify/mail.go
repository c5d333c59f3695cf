package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/mail.v2"

	"limitbot/internal/models"
	"limitbot/internal/repository"
)

// MailConfig - параметры SMTP
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailNotifier отправляет уведомления на e-mail пользователя.
// Пользователи без адреса пропускаются.
type MailNotifier struct {
	config MailConfig
	users  repository.UserStore
	send   func(*mail.Message) error
}

func NewMailNotifier(config MailConfig, users repository.UserStore) *MailNotifier {
	dialer := mail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	return &MailNotifier{
		config: config,
		users:  users,
		send:   func(m *mail.Message) error { return dialer.DialAndSend(m) },
	}
}

func (ms *MailNotifier) Notify(ctx context.Context, userID int64, message string) error {
	return ms.NotifyEvent(ctx, models.Notification{
		Type:    models.NotificationTypeInfo,
		UserID:  userID,
		Message: message,
	})
}

func (ms *MailNotifier) NotifyEvent(ctx context.Context, n models.Notification) error {
	user, err := ms.users.GetUser(ctx, n.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not load user %d: %w", n.UserID, err)
	}
	if user.Email == "" {
		return nil
	}

	message := mail.NewMessage()
	message.SetHeader("From", ms.config.From)
	message.SetHeader("To", user.Email)
	message.SetHeader("Subject", mailSubject(n))
	message.SetBody("text/plain", n.Message)

	if err := ms.send(message); err != nil {
		return fmt.Errorf("could not send email: %w", err)
	}
	return nil
}

func mailSubject(n models.Notification) string {
	switch n.Type {
	case models.NotificationTypeOrderFilled:
		return fmt.Sprintf("limitbot: order #%d filled", n.OrderID)
	case models.NotificationTypeOrderFailed:
		return fmt.Sprintf("limitbot: order #%d failed", n.OrderID)
	default:
		return "limitbot notification"
	}
}
