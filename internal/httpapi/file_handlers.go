package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"clinicdesk.org/internal/attachment"
)

// multipart overhead allowed on top of the file size limit
const uploadSlack = 1 << 20

func (a *API) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.files.MaxBytes()+uploadSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	entityType := formValue(r, "entity_type", "entityType")
	rawID := formValue(r, "entity_id", "entityId")
	if entityType == "" || rawID == "" {
		writeError(w, r, http.StatusBadRequest, "Entity type and ID are required")
		return
	}
	entityID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid entity id")
		return
	}

	att, err := a.files.Upload(r.Context(), attachment.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		EntityType:  entityType,
		EntityID:    entityID,
	})
	if err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "File uploaded successfully", map[string]any{"file_attachment": att})
}

func (a *API) listFiles(w http.ResponseWriter, r *http.Request) {
	out, err := a.files.List(r.Context())
	if err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_attachments": out})
}

func (a *API) listEntityFiles(w http.ResponseWriter, r *http.Request) {
	entityID, err := pathID(r, "entityId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	out, err := a.files.ListFor(r.Context(), chi.URLParam(r, "entityType"), entityID)
	if err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_attachments": out})
}

func (a *API) getFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	att, err := a.files.Get(r.Context(), id)
	if err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_attachment": att})
}

func (a *API) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	att, body, err := a.files.Open(r.Context(), id)
	if err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.logger.Warn("download interrupted", "request_id", RequestIDFromContext(r.Context()), "attachment_id", id, "error", err)
	}
}

func (a *API) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.files.Delete(r.Context(), id); err != nil {
		a.handleAttachmentError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "File attachment deleted successfully", nil)
}

func (a *API) handleAttachmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attachment.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, attachment.ErrUnsupportedType):
		writeError(w, r, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, attachment.ErrTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, attachment.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "File attachment not found")
	default:
		a.internalError(w, r, err)
	}
}

// formValue returns the first non-empty form or query value among names.
func formValue(r *http.Request, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(r.FormValue(n)); v != "" {
			return v
		}
	}
	return ""
}
