package repository

import (
	"context"
	"database/sql"
	"fmt"

	"limitbot/internal/models"
)

// PostgresOrderBackend хранит ордера в таблице orders.
// next_id лежит отдельно в order_meta, чтобы id не переиспользовались
// после удаления строк.
type PostgresOrderBackend struct {
	db *sql.DB
}

// NewPostgresOrderBackend создает backend поверх открытого подключения
func NewPostgresOrderBackend(db *sql.DB) *PostgresOrderBackend {
	return &PostgresOrderBackend{db: db}
}

func (b *PostgresOrderBackend) Load(ctx context.Context) (*models.OrderSnapshot, error) {
	snap := &models.OrderSnapshot{NextID: 1, Orders: []models.Order{}}

	err := b.db.QueryRowContext(ctx, `SELECT next_id FROM order_meta WHERE id = 1`).Scan(&snap.NextID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("query order_meta: %w", err)
	}

	query := `
		SELECT id, user_id, symbol, side, amount, type, target, status, created_at, executed_at
		FROM orders
		ORDER BY id`

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		var target sql.NullFloat64
		var executedAt sql.NullTime
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Symbol, &o.Side, &o.Amount, &o.Type,
			&target, &o.Status, &o.CreatedAt, &executedAt,
		); err != nil {
			return nil, err
		}
		if target.Valid {
			o.Target = target.Float64
		}
		if executedAt.Valid {
			t := executedAt.Time
			o.ExecutedAt = &t
		}
		snap.Orders = append(snap.Orders, o)
	}

	return snap, rows.Err()
}

// Save записывает снапшот в одной транзакции: next_id и upsert всех ордеров
func (b *PostgresOrderBackend) Save(ctx context.Context, snap *models.OrderSnapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_meta (id, next_id) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET next_id = EXCLUDED.next_id`,
		snap.NextID,
	)
	if err != nil {
		return fmt.Errorf("update order_meta: %w", err)
	}

	upsert := `
		INSERT INTO orders (id, user_id, symbol, side, amount, type, target, status, created_at, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			executed_at = EXCLUDED.executed_at`

	for _, o := range snap.Orders {
		var target sql.NullFloat64
		if o.Type == models.OrderTypeLimit {
			target = sql.NullFloat64{Float64: o.Target, Valid: true}
		}
		var executedAt sql.NullTime
		if o.ExecutedAt != nil {
			executedAt = sql.NullTime{Time: *o.ExecutedAt, Valid: true}
		}

		_, err := tx.ExecContext(ctx, upsert,
			o.ID, o.UserID, o.Symbol, o.Side, o.Amount, o.Type,
			target, o.Status, o.CreatedAt, executedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert order %d: %w", o.ID, err)
		}
	}

	return tx.Commit()
}
