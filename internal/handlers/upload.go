package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AnshRaj112/diary-backend/internal/middleware"
	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/AnshRaj112/diary-backend/internal/services"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
)

const maxAttachmentBytes = 10 << 20 // 10MB

// AttachmentHandler uploads files that entries can link to.
type AttachmentHandler struct {
	uploader services.AttachmentUploader
	identity IdentityExtractor
	log      *slog.Logger
}

// NewAttachmentHandler returns a handler. A nil uploader means uploads are not configured.
func NewAttachmentHandler(uploader services.AttachmentUploader, identity IdentityExtractor, log *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{uploader: uploader, identity: identity, log: log}
}

// Upload handles multipart POST with a "file" field. Files land in a per-owner folder.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := CheckMethod(r.Method, http.MethodPost); err != nil {
		writeError(w, http.StatusMethodNotAllowed, err.Error())
		return
	}

	owner, err := h.identity.ExtractIdentity(r.Header)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "Attachment uploads are not configured.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	url, err := h.uploader.UploadFile(r.Context(), file, "diary/"+utils.OwnerKey(owner))
	if err != nil {
		h.log.ErrorContext(r.Context(), "attachment upload failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error uploading attachment.")
		return
	}

	writeJSON(w, http.StatusCreated, models.AttachmentResponse{URL: url})
}
