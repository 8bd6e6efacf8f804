package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateFunc processes one decoded update.
type UpdateFunc func(ctx context.Context, update *telegram.Update) error

// Webhook accepts Telegram updates over HTTP. Updates are acknowledged
// immediately and processed in the background so a slow handler never makes
// Telegram redeliver.
type Webhook struct {
	secret string
	handle UpdateFunc
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewWebhook creates a webhook handler. An empty secret disables the check.
func NewWebhook(secret string, handle UpdateFunc, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{secret: secret, handle: handle, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid_secret", "secret token mismatch")
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_update", "cannot decode update")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.handle(ctx, &update); err != nil {
			h.logger.Warn("webhook update failed", "update_id", update.UpdateID, "error", err)
		}
	}()

	w.WriteHeader(http.StatusOK)
}

// Wait blocks until every accepted update has been processed.
func (h *Webhook) Wait() {
	h.wg.Wait()
}

// ══════════════════════════════════════════════════════════════════════════════
// JSON HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorBody{Error: code, Message: message})
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
