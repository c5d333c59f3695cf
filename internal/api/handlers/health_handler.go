package handlers

import "net/http"

// HealthResponse - состояние процесса
type HealthResponse struct {
	Status            string `json:"status"`
	VaultMode         string `json:"vault_mode"`
	EncryptionEnabled bool   `json:"encryption_enabled"`
	Storage           string `json:"storage"`
}

// VaultInfo - режим хранилища секретов (crypto.Vault)
type VaultInfo interface {
	Mode() string
	EncryptionEnabled() bool
}

// HealthHandler сообщает о работоспособности и режиме шифрования.
// В режиме passthrough ключи бирж лежат в хранилище открытым текстом.
type HealthHandler struct {
	vault   VaultInfo
	storage string
}

// NewHealthHandler создает HealthHandler
func NewHealthHandler(vault VaultInfo, storage string) *HealthHandler {
	return &HealthHandler{vault: vault, storage: storage}
}

// Health GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Storage: h.storage}
	if h.vault != nil {
		resp.VaultMode = h.vault.Mode()
		resp.EncryptionEnabled = h.vault.EncryptionEnabled()
	}
	respondWithJSON(w, http.StatusOK, resp)
}
