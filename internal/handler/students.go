package handler

import (
	"net/http"
)

func (h *Handler) GetStudentCount(w http.ResponseWriter, r *http.Request) {
	update, err := h.notifier.Current(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", update)
}
