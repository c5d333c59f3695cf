package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"limitbot/internal/models"
	"limitbot/pkg/utils"
)

var hubJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrHubStopped - Hub остановлен, сообщения не принимаются
var ErrHubStopped = errors.New("notification hub stopped")

// ErrHubBusy - очередь Hub переполнена, сообщение отброшено
var ErrHubBusy = errors.New("notification hub queue is full")

// outbound - сообщение для всех соединений одного пользователя
type outbound struct {
	userID int64
	data   []byte
}

// Hub управляет WebSocket соединениями пользователей.
//
// Каждое соединение подписано на уведомления одного пользователя.
// Сообщение доставляется во все открытые соединения пользователя,
// пользователь без соединений сообщение не получает.
//
// Использование:
// 1. hub := NewHub()
// 2. go hub.Run()
// 3. hub.Notify(ctx, userID, "...")
type Hub struct {
	clients map[*Client]bool

	queue      chan outbound
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	dropped atomic.Int64

	mu  sync.RWMutex
	log *utils.Logger
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		queue:      make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		log:        utils.L().WithComponent("ws_hub"),
	}
}

// Run запускает главный цикл Hub до вызова Stop.
// Должен запускаться в отдельной горутине.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", utils.UserID(client.userID), utils.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client disconnected", utils.UserID(client.userID), utils.Int("clients", total))

		case msg := <-h.queue:
			h.deliver(msg)
		}
	}
}

// deliver отправляет сообщение соединениям пользователя.
// Копируем список под RLock, отправляем без lock, медленных удаляем под Lock.
func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, 2)
	for client := range h.clients {
		if client.userID == msg.userID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range targets {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}

	if len(slow) > 0 {
		h.mu.Lock()
		for _, client := range slow {
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
		h.log.Warn("removed slow clients", utils.Int("count", len(slow)))
	}
}

// Stop останавливает Hub и закрывает все соединения
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Notify ставит текстовое уведомление в очередь
func (h *Hub) Notify(ctx context.Context, userID int64, message string) error {
	return h.NotifyEvent(ctx, models.Notification{
		Type:    models.NotificationTypeInfo,
		UserID:  userID,
		Message: message,
	})
}

// NotifyEvent ставит уведомление в очередь без ожидания.
// При переполненной очереди сообщение отбрасывается.
func (h *Hub) NotifyEvent(ctx context.Context, n models.Notification) error {
	data, err := hubJSON.Marshal(NewNotificationMessage(n))
	if err != nil {
		return err
	}
	return h.enqueue(n.UserID, data)
}

func (h *Hub) enqueue(userID int64, data []byte) error {
	select {
	case <-h.stop:
		return ErrHubStopped
	default:
	}

	select {
	case h.queue <- outbound{userID: userID, data: data}:
		return nil
	default:
		h.dropped.Add(1)
		return ErrHubBusy
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserClientCount - количество соединений пользователя
func (h *Hub) UserClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.userID == userID {
			n++
		}
	}
	return n
}

// DroppedMessages - сколько сообщений отброшено из-за переполнения очереди
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
