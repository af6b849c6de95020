package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/couponboard/internal/countdown"
)

// CouponCountdown транслирует обратный отсчёт купона потоком server-sent events.
// Все подключённые клиенты получают обновления от одного общего планировщика.
// Поток завершается по истечении срока купона или при отключении клиента.
func (h *Handler) CouponCountdown(w http.ResponseWriter, r *http.Request) {
	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	coupon, err := h.service.GetPublicCoupon(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "coupon countdown")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeMessage(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !h.sendCountdownEvent(w, flusher, coupon.ValidityDate, time.Now()) {
		return
	}

	ticks := h.ticks.Subscribe(r.Context())
	for {
		select {
		case <-r.Context().Done():
			return
		case now, open := <-ticks:
			if !open {
				return
			}
			if !h.sendCountdownEvent(w, flusher, coupon.ValidityDate, now) {
				return
			}
		}
	}
}

// sendCountdownEvent пишет одно событие и сообщает, продолжать ли поток.
func (h *Handler) sendCountdownEvent(w http.ResponseWriter, flusher http.Flusher, until *time.Time, now time.Time) bool {
	state := countdown.Remaining(until, now)

	payload, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("marshal countdown state error", zap.Error(err))
		return false
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	flusher.Flush()

	return !state.Expired
}
