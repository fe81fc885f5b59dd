package mapping

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/mappings", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/mappings/new-items", h.handleNewItems).Methods(http.MethodGet)
	r.HandleFunc("/mappings/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		NewChannelsOnly:     r.URL.Query().Get("new_channels") == "true",
		NewTradeClassesOnly: r.URL.Query().Get("new_trade_classes") == "true",
		Offset:              parseQueryInt(r, "offset", 0),
		Limit:               parseQueryInt(r, "limit", 100),
	}

	rows, err := h.repo.List(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list mappings")
		http.Error(w, "failed to list mappings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid mapping id", http.StatusBadRequest)
		return
	}

	rec, err := h.repo.Get(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "mapping not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get mapping")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mapping": rec})
}

// handleNewItems lists records whose value was novel at last write, split
// by field for review dashboards.
func (h *Handler) handleNewItems(w http.ResponseWriter, r *http.Request) {
	channels, err := h.repo.List(r.Context(), ListFilter{NewChannelsOnly: true, Limit: parseQueryInt(r, "limit", 100)})
	if err != nil {
		logger.Log.WithError(err).Error("failed to list new channels")
		http.Error(w, "failed to list new items", http.StatusInternalServerError)
		return
	}
	tradeClasses, err := h.repo.List(r.Context(), ListFilter{NewTradeClassesOnly: true, Limit: parseQueryInt(r, "limit", 100)})
	if err != nil {
		logger.Log.WithError(err).Error("failed to list new trade classes")
		http.Error(w, "failed to list new items", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"new_channels":      channels,
		"new_trade_classes": tradeClasses,
	})
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
