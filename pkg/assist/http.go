package assist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

type Handler struct {
	advisor *Advisor
}

func NewHandler(advisor *Advisor) *Handler {
	return &Handler{advisor: advisor}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/chat", h.chat).Methods("POST")
	router.HandleFunc("/chat/suggestions", h.suggestions).Methods("GET")
}

type chatRequest struct {
	Question string `json:"question"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	answer, err := h.advisor.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		logger.Log.WithError(err).Error("Chat request failed")
		http.Error(w, "failed to answer question", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"question": req.Question,
		"answer":   answer,
	})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured": h.advisor.Configured(),
		"questions":  h.advisor.SuggestedQuestions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
