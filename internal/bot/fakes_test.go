package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/repository"
)

// sequenceOracle возвращает цены по очереди, последняя повторяется
type sequenceOracle struct {
	mu     sync.Mutex
	prices map[string][]float64
	errs   map[string]error
}

func (o *sequenceOracle) GetReferencePrice(ctx context.Context, symbol string) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.errs[symbol]; err != nil {
		return 0, err
	}
	seq := o.prices[symbol]
	if len(seq) == 0 {
		return 0, errors.New("no price")
	}
	p := seq[0]
	if len(seq) > 1 {
		o.prices[symbol] = seq[1:]
	}
	return p, nil
}

// fakeExchange - управляемая биржа для тестов
type fakeExchange struct {
	calls   *atomic.Int32
	orderID string
	status  string
	err     error
	panicV  interface{}
	closed  bool
}

func (f *fakeExchange) Connect(apiKey, secret string) error { return nil }
func (f *fakeExchange) GetName() string                     { return "fake" }
func (f *fakeExchange) Close() error                        { f.closed = true; return nil }

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*exchange.Order, error) {
	f.calls.Add(1)
	if f.panicV != nil {
		panic(f.panicV)
	}
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == "" {
		status = exchange.OrderStatusFilled
	}
	return &exchange.Order{ID: f.orderID, Symbol: symbol, Side: side, Quantity: qty, Status: status}, nil
}

// fakeResolver возвращает заранее заданную биржу
type fakeResolver struct {
	ex  *fakeExchange
	err error
}

func (r *fakeResolver) Resolve(cred *models.ExchangeCredential) (exchange.Exchange, error) {
	if cred == nil {
		return nil, exchange.ErrNotConfigured
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.ex, nil
}

// failingUserStore всегда возвращает ошибку чтения
type failingUserStore struct{}

func (failingUserStore) GetUser(ctx context.Context, id int64) (*models.UserAccount, error) {
	return nil, errors.New("users.json: permission denied")
}

func (failingUserStore) SaveUser(ctx context.Context, u *models.UserAccount) error {
	return errors.New("read-only")
}

// flakyBackend отказывает в Save заданное число раз
type flakyBackend struct {
	repository.OrderBackend
	failures atomic.Int32
}

func (b *flakyBackend) Save(ctx context.Context, snap *models.OrderSnapshot) error {
	if b.failures.Load() > 0 {
		b.failures.Add(-1)
		return errors.New("disk full")
	}
	return b.OrderBackend.Save(ctx, snap)
}

// recordingNotifier запоминает уведомления
type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Notification
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, message string) error {
	return n.NotifyEvent(ctx, models.Notification{UserID: userID, Message: message})
}

func (n *recordingNotifier) NotifyEvent(ctx context.Context, ev models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.events...)
}

func userWithCredential(id int64) *models.UserAccount {
	return &models.UserAccount{
		ID:       id,
		Username: "trader",
		Exchange: &models.ExchangeCredential{ExchangeID: "fake", ExchangeKey: "k", ExchangeSecret: "s"},
	}
}
