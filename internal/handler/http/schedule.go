package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/handler/http/response"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/jwt"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/validator"
)

type ScheduleHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Conflicts(w http.ResponseWriter, r *http.Request)
	CreateJobSite(w http.ResponseWriter, r *http.Request)
	GetJobSite(w http.ResponseWriter, r *http.Request)
	ListJobSites(w http.ResponseWriter, r *http.Request)
}

type scheduleHandlerImpl struct {
	scheduleService schedule.ScheduleService
}

func NewScheduleHandler(scheduleService schedule.ScheduleService) ScheduleHandler {
	return &scheduleHandlerImpl{scheduleService: scheduleService}
}

// Create implements ScheduleHandler.
func (h *scheduleHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req schedule.CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, conflicts, err := h.scheduleService.CreateSchedule(r.Context(), req, identity.CompanyID, identity.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Schedule created", map[string]interface{}{
		"schedule":  result,
		"conflicts": conflicts,
	})
}

// Get implements ScheduleHandler.
func (h *scheduleHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	result, err := h.scheduleService.GetSchedule(r.Context(), chi.URLParam(r, "id"), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// List implements ScheduleHandler.
func (h *scheduleHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	filter := schedule.ScheduleFilter{
		EmployeeID: r.URL.Query().Get("employee_id"),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, ok := validator.IsValidDateTime(v); ok {
			filter.From = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, ok := validator.IsValidDateTime(v); ok {
			filter.To = &t
		}
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.scheduleService.ListSchedules(r.Context(), filter, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMeta(w, result.Schedules, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Update implements ScheduleHandler.
func (h *scheduleHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req schedule.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, conflicts, err := h.scheduleService.UpdateSchedule(r.Context(), req, identity.CompanyID, identity.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"schedule":  result,
		"conflicts": conflicts,
	})
}

// Cancel implements ScheduleHandler.
func (h *scheduleHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	if err := h.scheduleService.CancelSchedule(r.Context(), chi.URLParam(r, "id"), identity.CompanyID); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Schedule cancelled", nil)
}

// Conflicts implements ScheduleHandler.
func (h *scheduleHandlerImpl) Conflicts(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		response.BadRequest(w, "employee_id is required", nil)
		return
	}

	now := time.Now()
	from, to := now, now.AddDate(0, 0, 14)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, ok := validator.IsValidDateTime(v); ok {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, ok := validator.IsValidDateTime(v); ok {
			to = t
		}
	}

	result, err := h.scheduleService.DetectConflicts(r.Context(), employeeID, from, to, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// CreateJobSite implements ScheduleHandler.
func (h *scheduleHandlerImpl) CreateJobSite(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req schedule.CreateJobSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.scheduleService.CreateJobSite(r.Context(), req, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Job site created", result)
}

// GetJobSite implements ScheduleHandler.
func (h *scheduleHandlerImpl) GetJobSite(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	result, err := h.scheduleService.GetJobSite(r.Context(), chi.URLParam(r, "id"), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// ListJobSites implements ScheduleHandler.
func (h *scheduleHandlerImpl) ListJobSites(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	result, err := h.scheduleService.ListJobSites(r.Context(), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}
