package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/tradeops/cot-mapping-service/pkg/audit"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/mappings/upload", h.handleUpload).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !IsSpreadsheet(header.Filename) {
		msg := fmt.Sprintf("file must be a spreadsheet (%s), got %s",
			strings.Join(SpreadsheetExtensions, ", "), filepath.Ext(header.Filename))
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to read upload body")
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	result, err := h.service.ProcessBatch(r.Context(), ProcessRequest{
		FileName: header.Filename,
		Content:  content,
		Origin:   audit.OriginManual,
	})
	if err != nil {
		// Upload is the interactive path: surface the exact failure.
		if IsStoreError(err) {
			logger.Log.WithError(err).WithField("file", header.Filename).Error("upload ingest failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "file processed successfully",
		"result":  result,
	})
}
