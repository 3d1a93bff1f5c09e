package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/storage"
)

// MeetingHandler serves the plain upload/listing side of the uploads
// directory.
type MeetingHandler struct {
	uploads storage.Provider
	logger  *slog.Logger
}

// NewMeetingHandler creates a handler over the uploads provider.
func NewMeetingHandler(uploads storage.Provider, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{uploads: uploads, logger: logger}
}

// Upload handles POST /api/meetings/upload (multipart field "audio").
func (h *MeetingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	blob, _ := readAudioFile(w, r, "audio")
	if blob == nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "No file uploaded"})
		return
	}

	info, err := h.uploads.Save(blob.Filename, blob.Data)
	if err != nil {
		h.logger.Error("meeting upload failed",
			slog.String("filename", blob.Filename),
			slog.String("error", err.Error()))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		Data:    &info,
	})
}

// List handles GET /api/meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.uploads.List()
	if err != nil {
		writeAppError(w, err)
		return
	}
	files := make([]string, 0, len(infos))
	for _, info := range infos {
		files = append(files, info.Filename)
	}
	writeJSON(w, http.StatusOK, MeetingsResponse{Success: true, Files: files})
}

// ServeFile handles GET /api/meetings/{filename}: audio playback.
func (h *MeetingHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	info, err := h.uploads.Stat(name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	data, err := h.uploads.Read(name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", info.MIME)
	_, _ = w.Write(data)
}

// Delete handles DELETE /api/meetings/{filename}.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.Delete(chi.URLParam(r, "filename")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
