package exchange

import (
	"fmt"

	"limitbot/internal/models"
	"limitbot/pkg/crypto"
)

// Resolver строит клиент биржи по сохранённому ключу пользователя
type Resolver struct {
	vault *crypto.Vault
	opts  Options
}

// NewResolver создаёт Resolver. Ключи расшифровываются через vault.
func NewResolver(vault *crypto.Vault, opts Options) *Resolver {
	if vault == nil {
		vault = crypto.NewPassthroughVault()
	}
	return &Resolver{vault: vault, opts: opts}
}

// Resolve возвращает подключённый клиент биржи.
// ErrNotConfigured - у пользователя нет ключа, исполнение будет симулировано.
// Вызывающий обязан закрыть клиент.
func (r *Resolver) Resolve(cred *models.ExchangeCredential) (Exchange, error) {
	if cred == nil || cred.ExchangeID == "" {
		return nil, ErrNotConfigured
	}

	ex, err := NewExchange(cred.ExchangeID, r.opts)
	if err != nil {
		return nil, err
	}

	// Decrypt не возвращает ошибок: испорченный шифротекст уйдёт на биржу
	// как есть и будет отклонён при аутентификации
	key := r.vault.Decrypt(cred.ExchangeKey)
	secret := r.vault.Decrypt(cred.ExchangeSecret)

	if err := ex.Connect(key, secret); err != nil {
		_ = ex.Close()
		return nil, fmt.Errorf("connect %s: %w", cred.ExchangeID, err)
	}

	return ex, nil
}
