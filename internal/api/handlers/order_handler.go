package handlers

import (
	"net/http"
	"strings"

	"limitbot/internal/models"
	"limitbot/internal/service"
)

// PlaceOrderRequest - тело запроса ордера.
// amount и target принимаются числом или строкой.
type PlaceOrderRequest struct {
	Symbol string       `json:"symbol"`
	Side   string       `json:"side"`
	Amount numberString `json:"amount"`
	Target numberString `json:"target,omitempty"`
}

// PriceResponse - референсная цена символа
type PriceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// OrderHandler отвечает за ордера
//
// Endpoints:
// - POST /api/v1/users/{id}/orders/market - рыночный ордер
// - POST /api/v1/users/{id}/orders/limit - лимитный ордер
// - GET /api/v1/users/{id}/orders - ордера пользователя
// - GET /api/v1/price?symbol=BTC/USDT - референсная цена
type OrderHandler struct {
	orders OrderService
}

// NewOrderHandler создает новый OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) readOrder(w http.ResponseWriter, r *http.Request) (service.OrderRequest, bool) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return service.OrderRequest{}, false
	}

	var req PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body", err.Error())
		return service.OrderRequest{}, false
	}

	return service.OrderRequest{
		UserID: id,
		Symbol: req.Symbol,
		Side:   req.Side,
		Amount: string(req.Amount),
		Target: string(req.Target),
	}, true
}

// PlaceMarketOrder исполняет рыночный ордер сразу
// POST /api/v1/users/{id}/orders/market
//
// Ответ содержит финальный статус: filled(<id>), filled (mock) или failed:<причина>.
func (h *OrderHandler) PlaceMarketOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readOrder(w, r)
	if !ok {
		return
	}

	order, err := h.orders.PlaceMarketOrder(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

// PlaceLimitOrder сохраняет лимитный ордер в статусе open
// POST /api/v1/users/{id}/orders/limit
func (h *OrderHandler) PlaceLimitOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readOrder(w, r)
	if !ok {
		return
	}

	order, err := h.orders.PlaceLimitOrder(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

// ListOrders возвращает ордера пользователя от новых к старым
// GET /api/v1/users/{id}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	respondWithJSON(w, http.StatusOK, orders)
}

// GetPrice возвращает цену оракула
// GET /api/v1/price?symbol=BTC/USDT
func (h *OrderHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "symbol is required", "")
		return
	}

	price, err := h.orders.ReferencePrice(r.Context(), symbol)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, PriceResponse{Symbol: symbol, Price: price})
}
