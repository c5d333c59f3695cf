package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"limitbot/internal/models"
)

// Ошибки хранилища ордеров
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderTerminal  = errors.New("order already has a terminal status")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderBackend хранит полный снапшот ордеров.
// Save должен быть атомарным: после сбоя виден либо старый, либо новый снапшот.
type OrderBackend interface {
	Load(ctx context.Context) (*models.OrderSnapshot, error)
	Save(ctx context.Context, snap *models.OrderSnapshot) error
}

// OrderStore - единственная точка записи ордеров.
//
// Все операции чтение-изменение-запись выполняются под одним mutex,
// а текущий снапшот каждый раз загружается из backend внутри lock.
// Поэтому размещение ордеров и коммиты монитора не теряют обновлений,
// а id не переиспользуются.
type OrderStore struct {
	mu      sync.Mutex
	backend OrderBackend
	now     func() time.Time
}

// NewOrderStore создает хранилище поверх backend
func NewOrderStore(backend OrderBackend) *OrderStore {
	return &OrderStore{
		backend: backend,
		now:     time.Now,
	}
}

// load загружает снапшот. Вызывается под lock'ом.
func (s *OrderStore) load(ctx context.Context) (*models.OrderSnapshot, error) {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	normalizeSnapshot(snap)
	return snap, nil
}

// normalizeSnapshot гарантирует NextID больше любого существующего id
func normalizeSnapshot(snap *models.OrderSnapshot) {
	if snap.NextID < 1 {
		snap.NextID = 1
	}
	for _, o := range snap.Orders {
		if o.ID >= snap.NextID {
			snap.NextID = o.ID + 1
		}
	}
}

// Create присваивает ордеру новый id и сохраняет его.
// Статус по умолчанию - open.
func (s *OrderStore) Create(ctx context.Context, order models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return models.Order{}, err
	}

	order.ID = snap.NextID
	snap.NextID++
	if order.Status == "" {
		order.Status = models.OrderStatusOpen
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now().UTC()
	}

	snap.Orders = append(snap.Orders, order)

	if err := s.backend.Save(ctx, snap); err != nil {
		return models.Order{}, fmt.Errorf("save orders: %w", err)
	}

	return order.Clone(), nil
}

// Snapshot возвращает независимую копию всех ордеров
func (s *OrderStore) Snapshot(ctx context.Context) (*models.OrderSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// GetByID возвращает ордер по id
func (s *OrderStore) GetByID(ctx context.Context, id int64) (models.Order, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return models.Order{}, err
	}

	i := snap.Find(id)
	if i < 0 {
		return models.Order{}, ErrOrderNotFound
	}
	return snap.Orders[i], nil
}

// ListByUser возвращает ордера пользователя от новых к старым
func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0)
	for i := len(snap.Orders) - 1; i >= 0; i-- {
		if snap.Orders[i].UserID == userID {
			orders = append(orders, snap.Orders[i])
		}
	}
	return orders, nil
}

// CompareAndSetStatus меняет статус ордера, только если текущий равен expected.
//
// Финальный статус записывается один раз: попытка изменить его
// возвращает ErrOrderTerminal. При записи финального статуса
// проставляется ExecutedAt.
func (s *OrderStore) CompareAndSetStatus(ctx context.Context, id int64, expected, status string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return models.Order{}, err
	}

	i := snap.Find(id)
	if i < 0 {
		return models.Order{}, ErrOrderNotFound
	}

	order := &snap.Orders[i]
	if models.IsTerminalStatus(order.Status) {
		return order.Clone(), ErrOrderTerminal
	}
	if order.Status != expected {
		return order.Clone(), ErrStatusConflict
	}

	order.Status = status
	if models.IsTerminalStatus(status) {
		executed := s.now().UTC()
		order.ExecutedAt = &executed
	}

	if err := s.backend.Save(ctx, snap); err != nil {
		return models.Order{}, fmt.Errorf("save orders: %w", err)
	}

	return order.Clone(), nil
}

// ============================================================
// MemoryOrderBackend
// ============================================================

// MemoryOrderBackend хранит снапшот в памяти (STORAGE_DRIVER=memory, тесты)
type MemoryOrderBackend struct {
	mu   sync.Mutex
	snap *models.OrderSnapshot
}

// NewMemoryOrderBackend создает пустое хранилище в памяти
func NewMemoryOrderBackend() *MemoryOrderBackend {
	return &MemoryOrderBackend{snap: &models.OrderSnapshot{NextID: 1}}
}

func (b *MemoryOrderBackend) Load(ctx context.Context) (*models.OrderSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap.Clone(), nil
}

func (b *MemoryOrderBackend) Save(ctx context.Context, snap *models.OrderSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = snap.Clone()
	return nil
}
