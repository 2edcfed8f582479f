package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/middleware"
	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/service"
)

type FileHandler struct {
	chats *service.ChatService
}

func NewFileHandler(chats *service.ChatService) *FileHandler {
	return &FileHandler{chats: chats}
}

// Download streams one attachment to a technician who has joined the
// attachment's chat.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	att, rc, err := h.chats.OpenAttachmentForStaff(r.Context(), id, middleware.GetStaff(r.Context()))
	if err != nil {
		writeServiceError(w, "attachment download", err)
		return
	}
	defer rc.Close()
	h.stream(w, att, rc)
}

// StudentDownload streams one attachment to the chat's student, identified
// by the bound cookie token.
func (h *FileHandler) StudentDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	att, rc, err := h.chats.OpenAttachmentForStudent(r.Context(), id, middleware.GetStudentToken(r.Context()))
	if err != nil {
		writeServiceError(w, "attachment download", err)
		return
	}
	defer rc.Close()
	h.stream(w, att, rc)
}

// stream writes the blob with its stored mime type and original filename.
// Images are offered inline, everything else as a download.
func (h *FileHandler) stream(w http.ResponseWriter, att *model.ChatAttachment, rc io.Reader) {
	mime := att.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	disposition := "attachment"
	if att.IsImage() {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`%s; filename="%s"`, disposition, safeFilename(att.OriginalFilename)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Errorf("attachment %d stream: %v", att.ID, err)
	}
}

// safeFilename strips characters that would break the Content-Disposition
// header.
func safeFilename(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	if name == "" {
		name = "attachment"
	}
	return name
}
