package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helpdesk/internal/middleware"
	"github.com/helpdesk/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type startChatRequest struct {
	Name           string `json:"name"`
	InitialMessage string `json:"initial_message"`
}

// StartChat opens a new session for the anonymous student. The student
// token from the cookie is bound to the chat immediately.
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := middleware.GetStudentToken(r.Context())
	chat, err := h.chats.StartChat(r.Context(), req.Name, req.InitialMessage, token, token)
	if err != nil {
		writeServiceError(w, "chat start", err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// GetChat returns the session for status polling by its student.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	chat, err := h.chats.GetChatForStudent(r.Context(), chatID, middleware.GetStudentToken(r.Context()))
	if err != nil {
		writeServiceError(w, "chat get", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// ListMessages returns the ordered history for the chat's student.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	msgs, err := h.chats.ListMessagesForStudent(r.Context(), chatID, middleware.GetStudentToken(r.Context()))
	if err != nil {
		writeServiceError(w, "chat messages", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// maxUploadMemory bounds how much of a multipart body is buffered in RAM;
// larger parts spill to temp files.
const maxUploadMemory = 8 << 20

// parsePost extracts message content and attachments from either a JSON
// body or a multipart form (field "content", files under "attachments").
func parsePost(r *http.Request) (string, []service.Upload, func(), error) {
	cleanup := func() {}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, cleanup, err
		}
		return req.Content, nil, cleanup, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return "", nil, cleanup, err
	}
	opened := make([]multipart.File, 0, 4)
	cleanup = func() {
		for _, f := range opened {
			f.Close()
		}
		r.MultipartForm.RemoveAll()
	}
	uploads := make([]service.Upload, 0, len(r.MultipartForm.File["attachments"]))
	for _, fh := range r.MultipartForm.File["attachments"] {
		f, err := fh.Open()
		if err != nil {
			return "", nil, cleanup, err
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{
			Filename: fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Reader:   f,
		})
	}
	return r.FormValue("content"), uploads, cleanup, nil
}

// PostMessage appends a student message, optionally with attachments.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	content, uploads, cleanup, err := parsePost(r)
	defer cleanup()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := h.chats.PostStudentMessage(r.Context(), chatID, middleware.GetStudentToken(r.Context()), content, uploads)
	if err != nil {
		writeServiceError(w, "chat post", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Leave marks the session student_left.
func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := h.chats.LeaveAsStudent(r.Context(), chatID, middleware.GetStudentToken(r.Context())); err != nil {
		writeServiceError(w, "chat leave", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// Waiting lists unclaimed sessions for the technician dashboard.
func (h *ChatHandler) Waiting(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.WaitingChats(r.Context())
	if err != nil {
		writeServiceError(w, "chat waiting list", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// Mine lists the caller's active sessions.
func (h *ChatHandler) Mine(w http.ResponseWriter, r *http.Request) {
	staff := middleware.GetStaff(r.Context())
	chats, err := h.chats.ActiveChatsFor(r.Context(), staff.ID)
	if err != nil {
		writeServiceError(w, "chat mine list", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// Join adds the caller to the session (idempotent).
func (h *ChatHandler) Join(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	chat, err := h.chats.JoinChat(r.Context(), chatID, middleware.GetStaff(r.Context()))
	if err != nil {
		writeServiceError(w, "chat join", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Close ends the session and deletes its history.
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := h.chats.CloseChat(r.Context(), chatID, middleware.GetStaff(r.Context())); err != nil {
		writeServiceError(w, "chat close", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// StaffListMessages returns the history for a staff viewer.
func (h *ChatHandler) StaffListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	msgs, err := h.chats.ListMessagesForStaff(r.Context(), chatID, middleware.GetStaff(r.Context()))
	if err != nil {
		writeServiceError(w, "staff chat messages", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// StaffPostMessage appends a technician message.
func (h *ChatHandler) StaffPostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	content, uploads, cleanup, err := parsePost(r)
	defer cleanup()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := h.chats.PostStaffMessage(r.Context(), chatID, middleware.GetStaff(r.Context()), content, uploads)
	if err != nil {
		writeServiceError(w, "staff chat post", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Stats returns queue counters for the dashboard.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chats.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, "chat stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
