package mailbox

import (
	"encoding/json"
	"errors"
	"net/http"

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
	r.HandleFunc("/delivery-config", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/delivery-config", h.handleUpdate).Methods(http.MethodPut)
}

// UpdateRequest carries the editable configuration fields. Credentials are
// write-only: blank means keep the stored value.
type UpdateRequest struct {
	IMAPServer        string `json:"imap_server"`
	IMAPPort          int    `json:"imap_port"`
	SMTPServer        string `json:"smtp_server"`
	SMTPPort          int    `json:"smtp_port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	OAuthTokenURL     string `json:"oauth_token_url"`
	OAuthClientID     string `json:"oauth_client_id"`
	OAuthClientSecret string `json:"oauth_client_secret"`
	Enabled           *bool  `json:"enabled"`
	Folder            string `json:"folder"`
	SubjectFilter     string `json:"subject_filter"`
	PollIntervalSecs  int    `json:"poll_interval_seconds"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.Active(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			http.Error(w, "delivery configuration not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load delivery config")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Password and client secret are never echoed back; the json tags on
	// Config drop them. Only note whether they are set.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config":           cfg,
		"password_set":     cfg.Password != "",
		"oauth_secret_set": cfg.OAuthClientSecret != "",
		"auth_mode_oauth":  cfg.OAuthTokenURL != "",
		"poll_interval":    cfg.PollInterval().String(),
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := h.repo.Active(r.Context())
	if err != nil && !errors.Is(err, ErrNoConfig) {
		logger.Log.WithError(err).Error("failed to load delivery config")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if req.IMAPServer != "" {
		cfg.IMAPServer = req.IMAPServer
	}
	if req.IMAPPort > 0 {
		cfg.IMAPPort = req.IMAPPort
	}
	if req.SMTPServer != "" {
		cfg.SMTPServer = req.SMTPServer
	}
	if req.SMTPPort > 0 {
		cfg.SMTPPort = req.SMTPPort
	}
	if req.Username != "" {
		cfg.Username = req.Username
	}
	if req.Password != "" {
		cfg.Password = req.Password
	}
	if req.OAuthTokenURL != "" {
		cfg.OAuthTokenURL = req.OAuthTokenURL
	}
	if req.OAuthClientID != "" {
		cfg.OAuthClientID = req.OAuthClientID
	}
	if req.OAuthClientSecret != "" {
		cfg.OAuthClientSecret = req.OAuthClientSecret
	}
	if req.Folder != "" {
		cfg.Folder = req.Folder
	}
	if req.SubjectFilter != "" {
		cfg.SubjectFilter = req.SubjectFilter
	}
	if req.PollIntervalSecs > 0 {
		cfg.PollIntervalSecs = req.PollIntervalSecs
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}

	if err := h.repo.Save(r.Context(), cfg); err != nil {
		logger.Log.WithError(err).Error("failed to save delivery config")
		http.Error(w, "failed to save configuration", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "delivery configuration updated"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
