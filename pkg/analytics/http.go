package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/analytics/summary", h.summary).Methods("GET")
	router.HandleFunc("/analytics/trends", h.trends).Methods("GET")
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to build analytics summary")
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	stats, err := h.service.Trends(r.Context(), days)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to build batch trends")
		http.Error(w, "failed to build trends", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"trends": stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
