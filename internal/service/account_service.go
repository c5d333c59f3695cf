package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/repository"
	"limitbot/pkg/utils"
)

// Ошибки сервиса аккаунтов
var (
	ErrExchangeNotSupported = errors.New("exchange is not supported")
	ErrExchangeNotConnected = errors.New("exchange is not connected")
	ErrEmptyCredentials     = errors.New("api key and secret are required")
)

// AccountService - регистрация пользователей, импорт кошельков и ключи бирж.
//
// Все изменения аккаунта выполняются под одним mutex: чтение, изменение
// и запись пользователя не перемежаются между запросами.
type AccountService struct {
	users repository.UserStore
	vault SecretSealer
	now   func() time.Time
	mu    sync.Mutex
}

// NewAccountService создает сервис аккаунтов
func NewAccountService(users repository.UserStore, vault SecretSealer) *AccountService {
	return &AccountService{
		users: users,
		vault: vault,
		now:   time.Now,
	}
}

// Register создает аккаунт. Повторная регистрация возвращает существующий
// аккаунт, обновив адрес e-mail, если он передан.
func (s *AccountService) Register(ctx context.Context, id int64, username, email string) (*models.UserAccount, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	var verrs utils.ValidationErrors
	if id <= 0 {
		verrs.Add("id", "must be positive")
	}
	if username == "" {
		verrs.AddError("username", utils.ErrEmptyUsername)
	}
	if email != "" {
		verrs.AddError("email", utils.ValidateEmail(email))
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetUser(ctx, id)
	switch {
	case err == nil:
		if email == "" || email == user.Email {
			return user, nil
		}
		user.Email = email
	case errors.Is(err, repository.ErrUserNotFound):
		user = &models.UserAccount{
			ID:        id,
			Username:  username,
			Email:     email,
			Wallets:   []models.WalletEntry{},
			Settings:  map[string]string{},
			CreatedAt: s.now().UTC(),
		}
	default:
		return nil, err
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	utils.Info("user registered", utils.UserID(id))
	return user, nil
}

// GetUser возвращает аккаунт пользователя
func (s *AccountService) GetUser(ctx context.Context, id int64) (*models.UserAccount, error) {
	return s.users.GetUser(ctx, id)
}

// ImportWallet добавляет публичный адрес кошелька.
// Кошелёк с тем же именем заменяется.
func (s *AccountService) ImportWallet(ctx context.Context, userID int64, name, address string) (*models.WalletEntry, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)

	if err := utils.ValidateWalletName(name); err != nil {
		return nil, err
	}
	if err := rejectSecret("wallet_address", address); err != nil {
		return nil, err
	}
	if err := utils.ValidateWalletAddress(address); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := models.WalletEntry{
		Name:       name,
		Address:    address,
		ImportedAt: s.now().UTC(),
	}

	replaced := false
	for i := range user.Wallets {
		if user.Wallets[i].Name == name {
			user.Wallets[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		user.Wallets = append(user.Wallets, entry)
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	utils.Info("wallet imported", utils.UserID(userID), utils.String("wallet", name))
	return &entry, nil
}

// ConnectExchange сохраняет ключ биржи, заменяя предыдущий.
// Ключ и секрет проверяются guard'ом и шифруются перед записью.
func (s *AccountService) ConnectExchange(ctx context.Context, userID int64, exchangeID, apiKey, secret string) error {
	exchangeID = utils.NormalizeExchange(exchangeID)
	apiKey = strings.TrimSpace(apiKey)
	secret = strings.TrimSpace(secret)

	if !exchange.IsSupported(exchangeID) {
		return fmt.Errorf("%w: %s", ErrExchangeNotSupported, exchangeID)
	}
	if apiKey == "" || secret == "" {
		return ErrEmptyCredentials
	}
	if err := rejectSecret("exchange_key", apiKey); err != nil {
		return err
	}
	if err := rejectSecret("exchange_secret", secret); err != nil {
		return err
	}

	encKey, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	encSecret, err := s.vault.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("encrypt api secret: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	user.Exchange = &models.ExchangeCredential{
		ExchangeID:     exchangeID,
		ExchangeKey:    encKey,
		ExchangeSecret: encSecret,
		ConnectedAt:    s.now().UTC(),
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	utils.Info("exchange connected", utils.UserID(userID), utils.Exchange(exchangeID))
	return nil
}

// DisconnectExchange удаляет ключ биржи. Последующие ордера исполняются в mock-режиме.
func (s *AccountService) DisconnectExchange(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Exchange == nil {
		return ErrExchangeNotConnected
	}

	name := user.Exchange.ExchangeID
	user.Exchange = nil

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	utils.Info("exchange disconnected", utils.UserID(userID), utils.Exchange(name))
	return nil
}
