package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

type restHandler struct {
	coord  *app.Coordinator
	lister app.CompetitionLister
	log    *slog.Logger
}

type errorBody struct {
	Message string `json:"message"`
}

func (h *restHandler) listCompetitions(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "unknown status " + strconv.Quote(string(status))})
		return
	}
	list, err := h.lister.ListCompetitions(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *restHandler) getCompetition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid competition id"})
		return
	}
	snapshot, err := h.coord.Snapshot(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *restHandler) activeRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.coord.Tracker().ActiveRooms(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":      rooms,
		"localRooms": h.coord.Registry().Rooms(),
	})
}

func (h *restHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrCompetitionNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: err.Error()})
		return
	}
	h.log.Error("rest request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
