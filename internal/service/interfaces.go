package service

import (
	"context"

	"limitbot/internal/bot"
	"limitbot/internal/models"
)

// OrderRepository - хранилище ордеров (repository.OrderStore)
type OrderRepository interface {
	Create(ctx context.Context, order models.Order) (models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	CompareAndSetStatus(ctx context.Context, id int64, expected, status string) (models.Order, error)
}

// MarketExecutor исполняет рыночный ордер (bot.Executor)
type MarketExecutor interface {
	Execute(ctx context.Context, order models.Order) (bot.Execution, error)
}

// SecretSealer шифрует секреты перед сохранением (crypto.Vault)
type SecretSealer interface {
	Encrypt(plaintext string) (string, error)
}
