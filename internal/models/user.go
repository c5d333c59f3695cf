package models

import "time"

// UserAccount - пользователь бота со своими кошельками и биржевым ключом
type UserAccount struct {
	ID        int64               `json:"id" db:"id"`
	Username  string              `json:"username" db:"username"`
	Email     string              `json:"email,omitempty" db:"email"` // адрес для уведомлений
	Wallets   []WalletEntry       `json:"wallets" db:"wallets"`
	Exchange  *ExchangeCredential `json:"exchange,omitempty" db:"exchange"`
	Settings  map[string]string   `json:"settings" db:"settings"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
}

// WalletEntry - импортированный адрес кошелька.
// Хранит только публичный адрес, приватные ключи и фразы не принимаются.
type WalletEntry struct {
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	ImportedAt time.Time `json:"imported_at"`
}

// ExchangeCredential - API ключ биржи.
// ExchangeKey и ExchangeSecret хранятся зашифрованными (или как есть,
// если ключ шифрования не задан). Заменяется целиком.
type ExchangeCredential struct {
	ExchangeID     string    `json:"exchange_id"`
	ExchangeKey    string    `json:"exchange_key"`
	ExchangeSecret string    `json:"exchange_secret"`
	ConnectedAt    time.Time `json:"connected_at"`
}

// PublicUser - представление пользователя для API, без ключей
type PublicUser struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email,omitempty"`
	Wallets   []WalletEntry `json:"wallets"`
	Exchange  string        `json:"exchange,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Public возвращает представление без секретов
func (u *UserAccount) Public() PublicUser {
	p := PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Wallets:   append([]WalletEntry{}, u.Wallets...),
		CreatedAt: u.CreatedAt,
	}
	if u.Exchange != nil {
		p.Exchange = u.Exchange.ExchangeID
	}
	return p
}

// Clone возвращает глубокую копию аккаунта
func (u *UserAccount) Clone() *UserAccount {
	out := *u
	out.Wallets = append([]WalletEntry(nil), u.Wallets...)
	if u.Exchange != nil {
		c := *u.Exchange
		out.Exchange = &c
	}
	if u.Settings != nil {
		out.Settings = make(map[string]string, len(u.Settings))
		for k, v := range u.Settings {
			out.Settings[k] = v
		}
	}
	return &out
}
