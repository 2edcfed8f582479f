package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/helpdesk/internal/middleware"
	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/service"
)

type ScheduleHandler struct {
	sched *service.ScheduleService
}

func NewScheduleHandler(sched *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{sched: sched}
}

// Availability answers the public "is support open right now" question.
func (h *ScheduleHandler) Availability(w http.ResponseWriter, r *http.Request) {
	a, err := h.sched.CurrentAvailability(r.Context(), h.sched.Now())
	if err != nil {
		writeServiceError(w, "availability", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetWeekly returns all seven weekday entries (manager view).
func (h *ScheduleHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sched.GetWeekly(r.Context())
	if err != nil {
		writeServiceError(w, "schedule weekly get", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// UpdateWeekly rewrites one weekday entry.
func (h *ScheduleHandler) UpdateWeekly(w http.ResponseWriter, r *http.Request) {
	var entry model.WeeklyScheduleEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	staff := middleware.GetStaff(r.Context())
	updated, err := h.sched.UpdateWeekly(r.Context(), entry, staff.Username)
	if err != nil {
		writeServiceError(w, "schedule weekly update", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type presetRequest struct {
	Preset string          `json:"preset"`
	Days   []model.Weekday `json:"days"`
}

// ApplyPreset bulk-rewrites the given weekdays with a named template.
func (h *ScheduleHandler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	staff := middleware.GetStaff(r.Context())
	updated, err := h.sched.ApplyPreset(r.Context(), req.Preset, req.Days, staff.Username)
	if err != nil {
		writeServiceError(w, "schedule preset", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type overrideRequest struct {
	Date      string           `json:"date"`
	IsOpen    bool             `json:"is_open"`
	OpenTime  *model.TimeOfDay `json:"open_time"`
	CloseTime *model.TimeOfDay `json:"close_time"`
	Reason    string           `json:"reason"`
}

// CreateOverride records a date-specific exception ("2006-01-02" dates).
func (h *ScheduleHandler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, h.sched.Now().Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	staff := middleware.GetStaff(r.Context())
	o := model.ScheduleOverride{
		Date:      date,
		IsOpen:    req.IsOpen,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
		Reason:    req.Reason,
	}
	created, err := h.sched.CreateOverride(r.Context(), o, staff.Username)
	if err != nil {
		writeServiceError(w, "schedule override create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListOverrides returns today's and future overrides.
func (h *ScheduleHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.sched.ListOverrides(r.Context())
	if err != nil {
		writeServiceError(w, "schedule override list", err)
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}

// GetOverride returns the override for ?date=YYYY-MM-DD, 404 if none.
func (h *ScheduleHandler) GetOverride(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), h.sched.Now().Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	o, err := h.sched.OverrideForDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, "schedule override get", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteOverride removes an override by id.
func (h *ScheduleHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid override id")
		return
	}
	if err := h.sched.DeleteOverride(r.Context(), id); err != nil {
		writeServiceError(w, "schedule override delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
