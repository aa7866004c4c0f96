package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/osama-agency/telesklad-sub006/internal/job"
	"github.com/osama-agency/telesklad-sub006/internal/storage"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type enqueueRequest struct {
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	DelaySeconds int             `json:"delay_seconds"`
}

// enqueueHandler accepts a job and answers 202 before the job is known to
// be durable. The admin action that triggered the notification succeeds
// even when the enqueue behind it does not.
func (a *App) enqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t := job.Type(req.Type)
	if !t.Known() {
		writeError(w, http.StatusBadRequest, "unknown job type: "+req.Type)
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}
	if req.DelaySeconds < 0 {
		writeError(w, http.StatusBadRequest, "delay_seconds must not be negative")
		return
	}

	a.Queue.Enqueue(r.Context(), t, req.Payload, time.Duration(req.DelaySeconds)*time.Second)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Queue.Stats(r.Context())
	if err != nil {
		a.Log.Error("queue stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read queue depth")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) paymentClickHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	res, err := a.Clicks.RegisterPaymentClick(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		a.Log.Error("payment click", zap.Int64("purchase_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register click")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// update mirrors the Bot API update fields the webhook consumes.
type update struct {
	CallbackQuery *struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

// webhookHandler receives Bot API updates. Only the "i_paid:<purchase>"
// callback is acted on; everything else is acknowledged and ignored.
// Telegram retries non-2xx deliveries, so the handler always answers 200
// once the update parses.
func (a *App) webhookHandler(w http.ResponseWriter, r *http.Request) {
	var u update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	if u.CallbackQuery == nil || !strings.HasPrefix(u.CallbackQuery.Data, "i_paid:") {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	reply := a.handlePaymentCallback(r, u.CallbackQuery.Data)
	if err := a.Telegram.AnswerCallbackQuery(r.Context(), telegram.BotMain, u.CallbackQuery.ID, reply); err != nil {
		a.Log.Error("answer callback", zap.String("query_id", u.CallbackQuery.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handlePaymentCallback(r *http.Request, data string) string {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, "i_paid:"), 10, 64)
	if err != nil {
		a.Log.Warn("malformed callback data", zap.String("data", data))
		return ""
	}
	res, err := a.Clicks.RegisterPaymentClick(r.Context(), id)
	if err != nil {
		a.Log.Error("payment click", zap.Int64("purchase_id", id), zap.Error(err))
		return ""
	}
	a.Log.Info("payment button clicked",
		zap.Int64("purchase_id", id),
		zap.Int("clicks", res.ClickCount),
		zap.Bool("limit_reached", res.LimitReached))
	if res.LimitReached {
		return "Отметка об оплате уже получена"
	}
	return "Спасибо, оплата отмечена"
}
