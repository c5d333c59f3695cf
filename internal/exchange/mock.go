package exchange

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// mockNamespace - пространство имён UUIDv5 для идентификаторов mock-исполнений
var mockNamespace = uuid.MustParse("6f1c54b4-3c0e-5a55-9d8e-2b7f0c1a9e42")

// mockSeq - общий счётчик исполнений процесса
var mockSeq atomic.Int64

// Mock - биржа-заглушка для демо и тестов.
// Исполняет любой корректный ордер по запрошенному объёму.
// Идентификатор исполнения - UUIDv5 от параметров ордера и номера
// исполнения, поэтому повторяем в пределах запуска.
type Mock struct {
	apiKey    string
	connected bool
	now       func() time.Time
}

// NewMock создаёт mock-биржу
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

func (m *Mock) Connect(apiKey, secret string) error {
	m.apiKey = apiKey
	m.connected = true
	return nil
}

func (m *Mock) GetName() string {
	return NameMock
}

func (m *Mock) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.connected {
		return nil, ErrNotConnected
	}
	if err := validateOrder(side, qty); err != nil {
		return nil, err
	}

	seq := mockSeq.Add(1)
	id := mockExecutionID(m.apiKey, VenueSymbol(symbol), side, qty, seq)

	return &Order{
		ID:        id,
		Symbol:    VenueSymbol(symbol),
		Side:      side,
		Quantity:  qty,
		FilledQty: qty,
		Status:    OrderStatusFilled,
		CreatedAt: m.now(),
	}, nil
}

func (m *Mock) Close() error {
	m.connected = false
	return nil
}

// mockExecutionID строит детерминированный идентификатор исполнения
func mockExecutionID(apiKey, symbol, side string, qty float64, seq int64) string {
	data := apiKey + "|" + symbol + "|" + side + "|" +
		strconv.FormatFloat(qty, 'f', -1, 64) + "|" + strconv.FormatInt(seq, 10)
	return uuid.NewSHA1(mockNamespace, []byte(data)).String()
}
