package handlers

import (
	"net/http"
)

// RegisterRequest - тело запроса регистрации
type RegisterRequest struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ImportWalletRequest - публичный адрес кошелька
type ImportWalletRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ConnectExchangeRequest - ключ биржи
type ConnectExchangeRequest struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

// AccountHandler отвечает за аккаунты пользователей
//
// Endpoints:
// - POST /api/v1/users - регистрация
// - GET /api/v1/users/{id} - профиль без ключей
// - POST /api/v1/users/{id}/wallets - импорт адреса кошелька
// - POST /api/v1/users/{id}/exchange - подключение биржи
// - DELETE /api/v1/users/{id}/exchange - отключение биржи
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler создает новый AccountHandler
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register создает аккаунт или возвращает существующий
// POST /api/v1/users
//
// Ответы:
// - 200 OK: профиль пользователя
// - 400 Bad Request: некорректные данные
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body", err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), req.ID, req.Username, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user.Public())
}

// GetUser возвращает профиль пользователя
// GET /api/v1/users/{id}
func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return
	}

	user, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user.Public())
}

// ImportWallet сохраняет публичный адрес кошелька
// POST /api/v1/users/{id}/wallets
//
// Ответы:
// - 201 Created: кошелёк сохранён
// - 400 Bad Request: некорректное имя или адрес
// - 404 Not Found: пользователь не зарегистрирован
// - 422 Unprocessable Entity: похоже на приватный ключ или seed-фразу
func (h *AccountHandler) ImportWallet(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return
	}

	var req ImportWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body", "")
		return
	}

	wallet, err := h.accounts.ImportWallet(r.Context(), id, req.Name, req.Address)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, wallet)
}

// ConnectExchange сохраняет ключ биржи, заменяя предыдущий
// POST /api/v1/users/{id}/exchange
//
// Тело запроса:
//
//	{
//	  "exchange": "binance",
//	  "api_key": "your-api-key",
//	  "secret_key": "your-secret-key"
//	}
func (h *AccountHandler) ConnectExchange(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return
	}

	// Детали ошибки декодирования могут содержать фрагмент ключа
	var req ConnectExchangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body", "")
		return
	}

	if err := h.accounts.ConnectExchange(r.Context(), id, req.Exchange, req.APIKey, req.SecretKey); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Exchange connected"})
}

// DisconnectExchange удаляет ключ биржи
// DELETE /api/v1/users/{id}/exchange
//
// Ответы:
// - 200 OK: биржа отключена
// - 404 Not Found: пользователь не зарегистрирован
// - 409 Conflict: биржа не подключена
func (h *AccountHandler) DisconnectExchange(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", err.Error(), "")
		return
	}

	if err := h.accounts.DisconnectExchange(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Exchange disconnected"})
}
