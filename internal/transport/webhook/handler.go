package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/logger"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/metrics"
)

// processor runs the deal pipeline (ISP).
type processor interface {
	Process(ctx context.Context, dealID string) error
}

// Handler receives CRM outbound webhooks and dispatches pipeline runs.
// The CRM treats any non-200 as a delivery failure and retries, so the
// handler always replies {"status":"success"} and does the work async.
type Handler struct {
	processor      processor
	processTimeout time.Duration
	logger         *zap.Logger
}

// New creates a webhook handler. processTimeout bounds each background
// pipeline run.
func New(p processor, processTimeout time.Duration, log *zap.Logger) *Handler {
	if processTimeout <= 0 {
		processTimeout = 15 * time.Minute
	}
	return &Handler{processor: p, processTimeout: processTimeout, logger: log}
}

// Routes mounts the webhook endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Post("/webhook", h.handleWebhook)
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"message": "Aplicativo em execução"})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	dealID, err := dealIDFromRequest(r)
	if err != nil {
		log.Warn("webhook without deal id", zap.Error(err))
		metrics.WebhookDeliveriesTotal.WithLabelValues("ignored").Inc()
		writeJSON(w, map[string]string{"status": "success"})
		return
	}

	log.Info("webhook received", zap.String("deal_id", dealID))
	metrics.WebhookDeliveriesTotal.WithLabelValues("dispatched").Inc()

	// detach from the request context: the reply goes out immediately and
	// the pipeline keeps running in the background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.processTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx, h.logger)

		if err := h.processor.Process(ctx, dealID); err != nil {
			h.logger.Error("deal processing failed",
				zap.String("deal_id", dealID),
				zap.Error(err))
		}
	}()

	writeJSON(w, map[string]string{"status": "success"})
}

// dealIDFromRequest extracts the deal id from either a JSON or a
// form-encoded delivery. Both carry the flat keys "data[FIELDS][ID]"
// (update events) or "data[ID]".
func dealIDFromRequest(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decode json payload: %w", err)
		}
		for _, key := range []string{"data[FIELDS][ID]", "data[ID]"} {
			if v, ok := payload[key]; ok {
				if id := anyToString(v); id != "" {
					return id, nil
				}
			}
		}
		return "", fmt.Errorf("json payload has no deal id")
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("parse form payload: %w", err)
	}
	for _, key := range []string{"data[FIELDS][ID]", "data[ID]"} {
		if id := r.PostForm.Get(key); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("form payload has no deal id")
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
