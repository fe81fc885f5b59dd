package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

type Handler struct {
	repo          *Repository
	retentionDays int
}

func NewHandler(repo *Repository, retentionDays int) *Handler {
	return &Handler{repo: repo, retentionDays: retentionDays}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/processing-logs", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/processing-logs/cleanup", h.handleCleanup).Methods(http.MethodPost)
	r.HandleFunc("/processing-logs/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Offset: parseQueryInt(r, "offset", 0),
		Limit:  parseQueryInt(r, "limit", 50),
	}

	rows, err := h.repo.List(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list processing logs")
		http.Error(w, "failed to list processing logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid log id", http.StatusBadRequest)
		return
	}

	entry, err := h.repo.Get(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "log entry not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get processing log")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"log": entry})
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	days := parseQueryInt(r, "days", h.retentionDays)
	if days <= 0 {
		http.Error(w, "days must be positive", http.StatusBadRequest)
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := h.repo.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		logger.Log.WithError(err).Error("log cleanup failed")
		http.Error(w, "cleanup failed", http.StatusInternalServerError)
		return
	}

	logger.Log.WithField("deleted", deleted).Info("processing logs swept")
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
