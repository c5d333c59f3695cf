package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"limitbot/internal/repository"
	"limitbot/pkg/crypto"
	"limitbot/pkg/utils"
)

const testVaultKey = "0123456789abcdef0123456789abcdef"

func newAccountService(t *testing.T, key string) (*AccountService, *repository.MemoryUserStore, *crypto.Vault) {
	t.Helper()
	vault, err := crypto.NewVault(key)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	users := repository.NewMemoryUserStore()
	return NewAccountService(users, vault), users, vault
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAccountService(t, "")

	user, err := svc.Register(ctx, 42, "alice", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Wallets == nil || user.Settings == nil || user.Exchange != nil {
		t.Errorf("expected empty wallets and settings, got %+v", user)
	}

	again, err := svc.Register(ctx, 42, "alice2", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.Username != "alice" || again.Email != "alice@example.com" || !again.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("re-registration should keep the account and update e-mail, got %+v", again)
	}

	tests := []struct {
		name     string
		id       int64
		username string
		email    string
	}{
		{"zero id", 0, "bob", ""},
		{"empty username", 7, "  ", ""},
		{"bad email", 7, "bob", "not-an-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verrs utils.ValidationErrors
			_, err := svc.Register(ctx, tt.id, tt.username, tt.email)
			if !errors.As(err, &verrs) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAccountService_ImportWallet(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		userID  int64
		wallet  string
		address string
		wantErr error
	}{
		{"valid", 1, "main", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", nil},
		{"invalid name", 1, "my wallet!", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", utils.ErrInvalidWalletName},
		{"name too long", 1, strings.Repeat("a", 31), "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", utils.ErrInvalidWalletName},
		{"private key as address", 1, "main", hexKey, ErrSuspectedSecret},
		{"prefixed private key", 1, "main", "0x" + hexKey, ErrSuspectedSecret},
		{"seed phrase", 1, "main", "abandon ability able about above absent absorb abstract absurd abuse access accident", ErrSuspectedSecret},
		{"keyword", 1, "main", "my private key is here", ErrSuspectedSecret},
		{"short address", 1, "main", "0x123", utils.ErrInvalidWalletAddress},
		{"unknown user", 2, "main", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", repository.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, users, _ := newAccountService(t, "")
			_, _ = svc.Register(ctx, 1, "alice", "")

			entry, err := svc.ImportWallet(ctx, tt.userID, tt.wallet, tt.address)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}

			user, _ := users.GetUser(ctx, 1)
			if tt.wantErr != nil {
				if len(user.Wallets) != 0 {
					t.Errorf("rejected input must not be stored, got %+v", user.Wallets)
				}
				return
			}
			if entry.ImportedAt.IsZero() {
				t.Error("expected imported_at to be set")
			}
			if len(user.Wallets) != 1 || user.Wallets[0].Address != tt.address {
				t.Errorf("unexpected wallets: %+v", user.Wallets)
			}
		})
	}
}

func TestAccountService_ImportWalletReplacesByName(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAccountService(t, "")
	_, _ = svc.Register(ctx, 1, "alice", "")

	_, _ = svc.ImportWallet(ctx, 1, "main", "0x1111111111111111")
	_, _ = svc.ImportWallet(ctx, 1, "cold", "0x2222222222222222")
	_, _ = svc.ImportWallet(ctx, 1, "main", "0x3333333333333333")

	user, _ := users.GetUser(ctx, 1)
	if len(user.Wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(user.Wallets))
	}
	if user.Wallets[0].Address != "0x3333333333333333" {
		t.Errorf("expected main wallet replaced, got %s", user.Wallets[0].Address)
	}
}

func TestAccountService_ConnectExchangeEncrypts(t *testing.T) {
	ctx := context.Background()
	svc, users, vault := newAccountService(t, testVaultKey)
	_, _ = svc.Register(ctx, 1, "alice", "")

	if err := svc.ConnectExchange(ctx, 1, " Bybit ", "api-key-123", "api-secret-456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetUser(ctx, 1)
	cred := user.Exchange
	if cred == nil || cred.ExchangeID != "bybit" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.ExchangeKey == "api-key-123" || cred.ExchangeSecret == "api-secret-456" {
		t.Error("credentials stored in plaintext while encryption is enabled")
	}
	if vault.Decrypt(cred.ExchangeKey) != "api-key-123" || vault.Decrypt(cred.ExchangeSecret) != "api-secret-456" {
		t.Error("stored credentials do not decrypt to the originals")
	}

	// Повторное подключение заменяет ключ целиком
	if err := svc.ConnectExchange(ctx, 1, "binance", "other-key", "other-secret"); err != nil {
		t.Fatal(err)
	}
	user, _ = users.GetUser(ctx, 1)
	if user.Exchange.ExchangeID != "binance" || vault.Decrypt(user.Exchange.ExchangeKey) != "other-key" {
		t.Errorf("credential was not replaced: %+v", user.Exchange)
	}
}

func TestAccountService_ConnectExchangePassthrough(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAccountService(t, "")
	_, _ = svc.Register(ctx, 1, "alice", "")

	if err := svc.ConnectExchange(ctx, 1, "mock", "key", "secret"); err != nil {
		t.Fatal(err)
	}
	user, _ := users.GetUser(ctx, 1)
	if user.Exchange.ExchangeKey != "key" || user.Exchange.ExchangeSecret != "secret" {
		t.Errorf("passthrough mode should store values as is, got %+v", user.Exchange)
	}
}

func TestAccountService_ConnectExchangeRejects(t *testing.T) {
	tests := []struct {
		name     string
		exchange string
		key      string
		secret   string
		wantErr  error
	}{
		{"unsupported exchange", "kraken", "k", "s", ErrExchangeNotSupported},
		{"empty secret", "bybit", "k", " ", ErrEmptyCredentials},
		{"hex private key as api key", "bybit", strings.Repeat("0f", 32), "s", ErrSuspectedSecret},
		{"mnemonic as secret", "bybit", "k", "my Mnemonic words", ErrSuspectedSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, users, _ := newAccountService(t, testVaultKey)
			_, _ = svc.Register(ctx, 1, "alice", "")

			err := svc.ConnectExchange(ctx, 1, tt.exchange, tt.key, tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			user, _ := users.GetUser(ctx, 1)
			if user.Exchange != nil {
				t.Errorf("rejected credential must not be stored: %+v", user.Exchange)
			}
		})
	}
}

func TestAccountService_DisconnectExchange(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAccountService(t, "")
	_, _ = svc.Register(ctx, 1, "alice", "")

	if err := svc.DisconnectExchange(ctx, 1); !errors.Is(err, ErrExchangeNotConnected) {
		t.Errorf("expected ErrExchangeNotConnected, got %v", err)
	}

	_ = svc.ConnectExchange(ctx, 1, "mock", "key", "secret")
	if err := svc.DisconnectExchange(ctx, 1); err != nil {
		t.Fatal(err)
	}
	user, _ := users.GetUser(ctx, 1)
	if user.Exchange != nil {
		t.Errorf("expected credential removed, got %+v", user.Exchange)
	}
}

func TestAccountService_ErrorsDefined(t *testing.T) {
	for _, err := range []error{ErrSuspectedSecret, ErrExchangeNotSupported, ErrExchangeNotConnected, ErrEmptyCredentials} {
		if err == nil || err.Error() == "" {
			t.Error("service error is not defined")
		}
	}
	if strings.Contains(strings.ToLower(ErrSuspectedSecret.Error()), "0x") {
		t.Error("error message must not echo input")
	}
}
