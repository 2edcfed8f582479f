package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string             `json:"token"`
	Staff *model.StaffMember `json:"staff"`
}

// Login verifies staff credentials and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, staff, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, "staff login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Staff: staff})
}

// Logout revokes the caller's bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	token := ""
	if strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimSpace(auth[len("Bearer "):])
	}
	if token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			writeServiceError(w, "staff logout", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
