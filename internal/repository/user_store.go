package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"limitbot/internal/models"
)

// ErrUserNotFound - пользователь не зарегистрирован
var ErrUserNotFound = errors.New("user not found")

// UserStore - хранилище аккаунтов.
// Чтение-изменение-запись аккаунта сериализует вызывающая сторона (AccountService).
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.UserAccount, error)
	SaveUser(ctx context.Context, user *models.UserAccount) error
}

// ============================================================
// MemoryUserStore
// ============================================================

// MemoryUserStore хранит аккаунты в памяти
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[int64]*models.UserAccount
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[int64]*models.UserAccount)}
}

func (s *MemoryUserStore) GetUser(ctx context.Context, id int64) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryUserStore) SaveUser(ctx context.Context, user *models.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user.Clone()
	return nil
}

// ============================================================
// FileUserStore
// ============================================================

// FileUserStore хранит все аккаунты в DATA_DIR/users.json.
// Ключ - id пользователя, значение - аккаунт целиком.
type FileUserStore struct {
	mu   sync.Mutex
	path string
}

func NewFileUserStore(dir string) *FileUserStore {
	return &FileUserStore{path: filepath.Join(dir, UsersFileName)}
}

func (s *FileUserStore) load() (map[int64]*models.UserAccount, error) {
	users := make(map[int64]*models.UserAccount)
	if _, err := readJSONFile(s.path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *FileUserStore) GetUser(ctx context.Context, id int64) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	u, ok := users[id]
	if !ok || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *FileUserStore) SaveUser(ctx context.Context, user *models.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	users[user.ID] = user.Clone()

	if err := writeJSONFile(s.path, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// ============================================================
// PostgresUserStore
// ============================================================

// PostgresUserStore хранит аккаунты в таблице users.
// Кошельки, ключ биржи и настройки лежат в JSONB колонках.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) GetUser(ctx context.Context, id int64) (*models.UserAccount, error) {
	query := `
		SELECT id, username, email, wallets, exchange, settings, created_at
		FROM users
		WHERE id = $1`

	u := &models.UserAccount{}
	var wallets, settings []byte
	var exchange []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &wallets, &exchange, &settings, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(wallets) > 0 {
		if err := snapshotJSON.Unmarshal(wallets, &u.Wallets); err != nil {
			return nil, fmt.Errorf("decode wallets: %w", err)
		}
	}
	if len(exchange) > 0 && string(exchange) != "null" {
		u.Exchange = &models.ExchangeCredential{}
		if err := snapshotJSON.Unmarshal(exchange, u.Exchange); err != nil {
			return nil, fmt.Errorf("decode exchange: %w", err)
		}
	}
	if len(settings) > 0 {
		if err := snapshotJSON.Unmarshal(settings, &u.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	return u, nil
}

func (s *PostgresUserStore) SaveUser(ctx context.Context, user *models.UserAccount) error {
	wallets, err := snapshotJSON.Marshal(nonNilWallets(user.Wallets))
	if err != nil {
		return err
	}
	settings, err := snapshotJSON.Marshal(nonNilSettings(user.Settings))
	if err != nil {
		return err
	}
	var exchange []byte
	if user.Exchange != nil {
		exchange, err = snapshotJSON.Marshal(user.Exchange)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO users (id, username, email, wallets, exchange, settings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			wallets = EXCLUDED.wallets,
			exchange = EXCLUDED.exchange,
			settings = EXCLUDED.settings`

	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, wallets, exchange, settings, user.CreatedAt,
	)
	return err
}

func nonNilWallets(w []models.WalletEntry) []models.WalletEntry {
	if w == nil {
		return []models.WalletEntry{}
	}
	return w
}

func nonNilSettings(s map[string]string) map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return s
}
