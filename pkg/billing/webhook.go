package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// WebhookHandler receives provider webhook POSTs, verifies signatures and
// feeds events into the billing service.
type WebhookHandler struct {
	svc *Service
	log *slog.Logger
}

// NewWebhookHandler creates a webhook HTTP handler for the service.
func NewWebhookHandler(svc *Service, log *slog.Logger) *WebhookHandler {
	if svc == nil {
		panic("billing: service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{svc: svc, log: log}
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

// ServeHTTP verifies the signature and dispatches the event. Processing
// failures return 500 so the provider retries delivery.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusMethodNotAllowed, webhookErrorResponse{Error: "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "failed to read request body"})
		return
	}

	event, err := h.svc.provider.ParseWebhook(payload, r.Header)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "invalid signature"})
		return
	}

	if err := h.svc.HandleEvent(r.Context(), event); err != nil {
		h.log.ErrorContext(r.Context(), "webhook processing failed",
			slog.String("event_id", event.ID),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		h.writeJSON(w, http.StatusInternalServerError, webhookErrorResponse{Error: "processing failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, webhookReceivedResponse{Received: true})
}

func (h *WebhookHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode webhook response", slog.Int("status", status), slog.Any("error", err))
	}
}
