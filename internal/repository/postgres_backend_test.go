package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"limitbot/internal/models"
)

var orderColumns = []string{
	"id", "user_id", "symbol", "side", "amount", "type", "target", "status", "created_at", "executed_at",
}

func TestPostgresOrderBackend_Load(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantNext  int64
		wantCount int
		wantErr   bool
	}{
		{
			name: "orders and meta",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT next_id FROM order_meta`).
					WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(3))
				mock.ExpectQuery(`SELECT (.+) FROM orders`).
					WillReturnRows(sqlmock.NewRows(orderColumns).
						AddRow(1, 10, "BTCUSDT", "BUY", 0.5, "limit", 20000.0, "open", now, nil).
						AddRow(2, 10, "ETHUSDT", "SELL", 1.0, "market", nil, "filled (mock)", now, now))
			},
			wantNext:  3,
			wantCount: 2,
		},
		{
			name: "empty database",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT next_id FROM order_meta`).WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(`SELECT (.+) FROM orders`).
					WillReturnRows(sqlmock.NewRows(orderColumns))
			},
			wantNext:  1,
			wantCount: 0,
		},
		{
			name: "query error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT next_id FROM order_meta`).WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			snap, err := NewPostgresOrderBackend(db).Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if snap.NextID != tt.wantNext {
					t.Errorf("expected next_id %d, got %d", tt.wantNext, snap.NextID)
				}
				if len(snap.Orders) != tt.wantCount {
					t.Errorf("expected %d orders, got %d", tt.wantCount, len(snap.Orders))
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresOrderBackend_LoadNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT next_id FROM order_meta`).
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(2))
	mock.ExpectQuery(`SELECT (.+) FROM orders`).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(1, 10, "BTCUSDT", "BUY", 0.5, "limit", 20000.0, "failed:timeout", now, now))

	snap, err := NewPostgresOrderBackend(db).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	o := snap.Orders[0]
	if o.Target != 20000 {
		t.Errorf("expected target 20000, got %v", o.Target)
	}
	if o.ExecutedAt == nil || !o.ExecutedAt.Equal(now) {
		t.Errorf("expected executed_at %v, got %v", now, o.ExecutedAt)
	}
}

func TestPostgresOrderBackend_Save(t *testing.T) {
	now := time.Now().UTC()
	snap := &models.OrderSnapshot{
		NextID: 3,
		Orders: []models.Order{
			{ID: 1, UserID: 10, Symbol: "BTCUSDT", Side: "BUY", Amount: 0.5, Type: "limit", Target: 20000, Status: "open", CreatedAt: now},
			{ID: 2, UserID: 10, Symbol: "ETHUSDT", Side: "SELL", Amount: 1, Type: "market", Status: "filled (mock)", CreatedAt: now, ExecutedAt: &now},
		},
	}

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "single transaction",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO order_meta`).
					WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO orders`).
					WithArgs(int64(1), int64(10), "BTCUSDT", "BUY", 0.5, "limit", 20000.0, "open", now, nil).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO orders`).
					WithArgs(int64(2), int64(10), "ETHUSDT", "SELL", 1.0, "market", nil, "filled (mock)", now, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "rollback on failure",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO order_meta`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO orders`).
					WillReturnError(errors.New("constraint violation"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			err = NewPostgresOrderBackend(db).Save(context.Background(), snap)
			if (err != nil) != tt.wantErr {
				t.Errorf("Save() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresUserStore_GetUser(t *testing.T) {
	now := time.Now().UTC()
	columns := []string{"id", "username", "email", "wallets", "exchange", "settings", "created_at"}

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantErr   error
		check     func(t *testing.T, u *models.UserAccount)
	}{
		{
			name: "with exchange",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
					WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(
						7, "alice", "a@example.com",
						[]byte(`[{"name":"main","address":"0x1234567890"}]`),
						[]byte(`{"exchange_id":"bybit","exchange_key":"ct1","exchange_secret":"ct2"}`),
						[]byte(`{"lang":"en"}`),
						now,
					))
			},
			check: func(t *testing.T, u *models.UserAccount) {
				if u.Exchange == nil || u.Exchange.ExchangeID != "bybit" {
					t.Errorf("expected bybit credential, got %+v", u.Exchange)
				}
				if len(u.Wallets) != 1 || u.Wallets[0].Name != "main" {
					t.Errorf("unexpected wallets: %+v", u.Wallets)
				}
				if u.Settings["lang"] != "en" {
					t.Errorf("unexpected settings: %+v", u.Settings)
				}
			},
		},
		{
			name: "without exchange",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
					WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(
						7, "alice", "", []byte(`[]`), nil, []byte(`{}`), now,
					))
			},
			check: func(t *testing.T, u *models.UserAccount) {
				if u.Exchange != nil {
					t.Errorf("expected no credential, got %+v", u.Exchange)
				}
			},
		},
		{
			name: "not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
					WithArgs(int64(7)).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			u, err := NewPostgresUserStore(db).GetUser(context.Background(), 7)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.check != nil {
				tt.check(t, u)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresUserStore_SaveUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(int64(7), "alice", "", []byte(`[]`), sqlmock.AnyArg(), []byte(`{}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresUserStore(db).SaveUser(context.Background(), &models.UserAccount{
		ID:        7,
		Username:  "alice",
		CreatedAt: now,
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
