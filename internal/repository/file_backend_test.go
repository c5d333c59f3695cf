package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"limitbot/internal/models"
)

func TestFileOrderBackend_MissingFile(t *testing.T) {
	b := NewFileOrderBackend(t.TempDir())

	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.NextID != 1 || len(snap.Orders) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestFileOrderBackend_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewOrderStore(NewFileOrderBackend(dir))
	o, err := store.Create(ctx, newLimitOrder(5, models.SideSell, 31000))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CompareAndSetStatus(ctx, o.ID, models.OrderStatusOpen, models.FilledStatus("x1")); err != nil {
		t.Fatal(err)
	}

	// Новый экземпляр читает то же состояние с диска
	reopened := NewOrderStore(NewFileOrderBackend(dir))
	got, err := reopened.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "filled(x1)" || got.Target != 31000 || got.UserID != 5 {
		t.Errorf("unexpected order after reload: %+v", got)
	}
	if got.ExecutedAt == nil {
		t.Error("expected executed_at to survive reload")
	}

	next, err := reopened.Create(ctx, newLimitOrder(5, models.SideBuy, 1))
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != 2 {
		t.Errorf("expected id 2 after reload, got %d", next.ID)
	}
}

func TestFileOrderBackend_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	b := NewFileOrderBackend(dir)

	err := b.Save(context.Background(), &models.OrderSnapshot{
		NextID: 2,
		Orders: []models.Order{{ID: 1, Status: models.OrderStatusOpen, CreatedAt: time.Now()}},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != OrdersFileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only %s, got %v", OrdersFileName, names)
	}
}

func TestFileOrderBackend_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OrdersFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileOrderBackend(dir).Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileUserStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileUserStore(dir)

	if _, err := store.GetUser(ctx, 1); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	user := &models.UserAccount{
		ID:       1,
		Username: "alice",
		Wallets:  []models.WalletEntry{{Name: "main", Address: "0xabc0123456"}},
		Exchange: &models.ExchangeCredential{ExchangeID: "bybit", ExchangeKey: "k", ExchangeSecret: "s"},
		Settings: map[string]string{},
	}
	if err := store.SaveUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileUserStore(dir).GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "alice" || len(got.Wallets) != 1 || got.Exchange == nil || got.Exchange.ExchangeID != "bybit" {
		t.Errorf("unexpected user after reload: %+v", got)
	}
}

func TestMemoryUserStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	_ = store.SaveUser(ctx, &models.UserAccount{ID: 1, Username: "bob"})

	u, _ := store.GetUser(ctx, 1)
	u.Username = "mallory"

	again, _ := store.GetUser(ctx, 1)
	if again.Username != "bob" {
		t.Errorf("expected stored copy untouched, got %q", again.Username)
	}
}
