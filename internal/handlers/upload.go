package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
	"maflab-backend/internal/services"
)

const maxUploadBytes = 20 << 20 // 20 MB

type UploadHandler struct {
	uploadRepo *repository.UploadRepo
	storage    *services.LocalStorage
	extract    *services.FileExtractService
	activity   activityLogger
}

func NewUploadHandler(uploadRepo *repository.UploadRepo, storage *services.LocalStorage, extract *services.FileExtractService, activity activityLogger) *UploadHandler {
	return &UploadHandler{
		uploadRepo: uploadRepo,
		storage:    storage,
		extract:    extract,
		activity:   activity,
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File exceeds the 20 MB limit or the form is malformed", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing file field", r))
		return
	}
	defer file.Close()

	// Sniff the real content type from the first bytes instead of
	// trusting the client's header.
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]
	mimeType := http.DetectContentType(head)
	if i := strings.Index(mimeType, ";"); i > 0 {
		mimeType = mimeType[:i]
	}

	relPath, size, err := h.storage.Save(userID, header.Filename, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	upload := &models.Upload{
		UserID:    userID,
		FileName:  header.Filename,
		MimeType:  mimeType,
		URL:       h.storage.PublicURL(relPath),
		SizeBytes: size,
	}

	if mimeType == "application/pdf" {
		meta, err := h.extract.PDFInfo(h.storage.FullPath(relPath))
		if err != nil {
			log.Printf("failed to extract pdf metadata for %s: %v", header.Filename, err)
		} else {
			upload.MetadataJSON, _ = json.Marshal(meta)
		}
	}

	if err := h.uploadRepo.Create(r.Context(), upload); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record upload", r))
		return
	}

	if h.activity != nil {
		h.activity.Log(r.Context(), userID, "upload", map[string]interface{}{
			"upload_id": upload.ID.String(),
			"file_name": upload.FileName,
		})
	}

	writeJSON(w, http.StatusCreated, upload)
}

func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	uploads, err := h.uploadRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list uploads", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"uploads": uploads})
}
