package httptransport

import (
	"net/http"

	"go.uber.org/zap"
)

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /notifications"))

	rows, err := h.notifications.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

func (h *handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "PATCH /notifications/{id}/read"))

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(log, w, err)
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
