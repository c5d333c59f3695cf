package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"limitbot/internal/api/handlers"
	"limitbot/internal/api/middleware"
	"limitbot/internal/notify"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Accounts      handlers.AccountService
	Orders        handlers.OrderService
	Notifications *notify.Handler // nil - без /ws
	Vault         handlers.VaultInfo
	Storage       string
	TokenHash     string // bcrypt-хеш bearer токена, пусто - без авторизации
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /users - регистрация
//	├── GET /users/{id} - профиль
//	├── POST /users/{id}/wallets - импорт кошелька
//	├── POST /users/{id}/exchange - подключить биржу
//	├── DELETE /users/{id}/exchange - отключить биржу
//	├── POST /users/{id}/orders/market - рыночный ордер
//	├── POST /users/{id}/orders/limit - лимитный ордер
//	├── GET /users/{id}/orders - ордера пользователя
//	└── GET /price?symbol= - референсная цена
//
// /ws?user_id= - уведомления пользователя (WebSocket)
// /healthz, /metrics - без авторизации
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. Auth (/api/v1 и /ws)
func SetupRoutes(deps *Dependencies) *mux.Router {
	if deps == nil {
		deps = &Dependencies{}
	}

	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	auth := middleware.Auth(deps.TokenHash)

	// Маршруты /api/v1 живут на корневом роутере: внутри Subrouter mux 1.8
	// теряет ErrMethodMismatch и отвечает 404 вместо 405
	api := func(path string, h http.HandlerFunc, method string) {
		router.Handle("/api/v1"+path, auth(h)).Methods(method)
	}

	if deps.Accounts != nil {
		accountHandler := handlers.NewAccountHandler(deps.Accounts)
		api("/users", accountHandler.Register, "POST")
		api("/users/{id:[0-9]+}", accountHandler.GetUser, "GET")
		api("/users/{id:[0-9]+}/wallets", accountHandler.ImportWallet, "POST")
		api("/users/{id:[0-9]+}/exchange", accountHandler.ConnectExchange, "POST")
		api("/users/{id:[0-9]+}/exchange", accountHandler.DisconnectExchange, "DELETE")
	}

	if deps.Orders != nil {
		orderHandler := handlers.NewOrderHandler(deps.Orders)
		api("/users/{id:[0-9]+}/orders/market", orderHandler.PlaceMarketOrder, "POST")
		api("/users/{id:[0-9]+}/orders/limit", orderHandler.PlaceLimitOrder, "POST")
		api("/users/{id:[0-9]+}/orders", orderHandler.ListOrders, "GET")
		api("/price", orderHandler.GetPrice, "GET")
	}

	if deps.Notifications != nil {
		ws := deps.Notifications
		router.Handle("/ws", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
			if err != nil || userID <= 0 {
				http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
				return
			}
			ws.ServeUser(w, r, userID)
		}))).Methods("GET")
	}

	healthHandler := handlers.NewHealthHandler(deps.Vault, deps.Storage)
	router.HandleFunc("/healthz", healthHandler.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
