package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"limitbot/internal/exchange"
	"limitbot/internal/models"
	"limitbot/internal/repository"
	"limitbot/internal/service"
	"limitbot/pkg/utils"
)

var apiJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxRequestBodySize ограничение размера тела запроса (1 MB)
const MaxRequestBodySize = 1 << 20

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// AccountService - операции с аккаунтом (service.AccountService)
type AccountService interface {
	Register(ctx context.Context, id int64, username, email string) (*models.UserAccount, error)
	GetUser(ctx context.Context, id int64) (*models.UserAccount, error)
	ImportWallet(ctx context.Context, userID int64, name, address string) (*models.WalletEntry, error)
	ConnectExchange(ctx context.Context, userID int64, exchangeID, apiKey, secret string) error
	DisconnectExchange(ctx context.Context, userID int64) error
}

// OrderService - операции с ордерами (service.OrderService)
type OrderService interface {
	PlaceMarketOrder(ctx context.Context, req service.OrderRequest) (models.Order, error)
	PlaceLimitOrder(ctx context.Context, req service.OrderRequest) (models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	ReferencePrice(ctx context.Context, symbol string) (float64, error)
}

// numberString принимает число и как JSON-число, и как строку.
// Разбор значения выполняет сервис.
type numberString string

func (n *numberString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := apiJSON.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numberString(s)
		return nil
	}
	*n = numberString(raw)
	return nil
}

// decodeJSON ограничивает размер тела и декодирует его в dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	return apiJSON.NewDecoder(r.Body).Decode(dst)
}

// userIDFromPath читает {id} из пути
func userIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("user id must be a positive integer")
	}
	return id, nil
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := apiJSON.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError отправляет JSON ответ с ошибкой
func respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleServiceError обрабатывает ошибки от сервиса и возвращает соответствующий HTTP статус.
// Текст ошибок guard'а не содержит введённого значения.
func handleServiceError(w http.ResponseWriter, err error) {
	var verrs utils.ValidationErrors

	switch {
	case errors.Is(err, service.ErrSuspectedSecret):
		respondWithError(w, http.StatusUnprocessableEntity, "suspected_secret", err.Error(), "")

	case errors.As(err, &verrs):
		respondWithError(w, http.StatusBadRequest, "validation_error", "Invalid request", verrs.Error())

	case errors.Is(err, utils.ErrInvalidAmount),
		errors.Is(err, utils.ErrInvalidPrice),
		errors.Is(err, utils.ErrInvalidSide),
		errors.Is(err, utils.ErrInvalidSymbol),
		errors.Is(err, utils.ErrInvalidWalletName),
		errors.Is(err, utils.ErrInvalidWalletAddress),
		errors.Is(err, utils.ErrInvalidEmail):
		respondWithError(w, http.StatusBadRequest, "invalid_input", err.Error(), "")

	case errors.Is(err, service.ErrExchangeNotSupported):
		respondWithError(w, http.StatusBadRequest, "exchange_not_supported", err.Error(),
			"Supported exchanges: "+strings.Join(exchange.SupportedExchanges, ", "))

	case errors.Is(err, service.ErrEmptyCredentials):
		respondWithError(w, http.StatusBadRequest, "empty_credentials", err.Error(), "")

	case errors.Is(err, repository.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found", "Register first")

	case errors.Is(err, service.ErrExchangeNotConnected):
		respondWithError(w, http.StatusConflict, "exchange_not_connected", "Exchange is not connected", "")

	default:
		utils.L().WithComponent("api").Error("request failed", utils.Err(err))
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", "")
	}
}
