package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	worker *Worker
}

func NewHandler(worker *Worker) *Handler {
	return &Handler{worker: worker}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/monitoring/start", h.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/monitoring/stop", h.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/monitoring/status", h.handleStatus).Methods(http.MethodGet)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.worker.Start()
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "mailbox monitoring started"})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.worker.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "mailbox monitoring stopped"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.worker.Status())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
