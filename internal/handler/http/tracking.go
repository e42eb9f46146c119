package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/consent"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
	"github.com/shiftsense/tracking-engine-go/internal/handler/http/response"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/jwt"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/tracker"
)

type TrackingHandler interface {
	GetConsent(w http.ResponseWriter, r *http.Request)
	SetConsent(w http.ResponseWriter, r *http.Request)
	StartTracking(w http.ResponseWriter, r *http.Request)
	StopTracking(w http.ResponseWriter, r *http.Request)
}

type trackingHandlerImpl struct {
	consents       consent.ConsentRepository
	sessionService session.SessionService
	coordinator    *tracker.Coordinator
}

func NewTrackingHandler(consents consent.ConsentRepository, sessionService session.SessionService, coordinator *tracker.Coordinator) TrackingHandler {
	return &trackingHandlerImpl{
		consents:       consents,
		sessionService: sessionService,
		coordinator:    coordinator,
	}
}

type consentResponse struct {
	ConsentGiven        bool   `json:"consent_given"`
	AutoTrackingEnabled bool   `json:"auto_tracking_enabled"`
	UpdatedAt           string `json:"updated_at"`
}

type setConsentRequest struct {
	ConsentGiven        bool `json:"consent_given"`
	AutoTrackingEnabled bool `json:"auto_tracking_enabled"`
}

// GetConsent implements TrackingHandler.
func (h *trackingHandlerImpl) GetConsent(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	rec, err := h.consents.Get(r.Context(), identity.EmployeeID, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, consentResponse{
		ConsentGiven:        rec.ConsentGiven,
		AutoTrackingEnabled: rec.AutoTrackingEnabled,
		UpdatedAt:           rec.UpdatedAt.Format(time.RFC3339),
	})
}

// SetConsent implements TrackingHandler.
func (h *trackingHandlerImpl) SetConsent(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req setConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	rec := consent.TrackingConsent{
		EmployeeID:          identity.EmployeeID,
		CompanyID:           identity.CompanyID,
		ConsentGiven:        req.ConsentGiven,
		AutoTrackingEnabled: req.AutoTrackingEnabled,
		UpdatedAt:           time.Now(),
	}
	if err := h.consents.Set(r.Context(), rec); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Consent updated", consentResponse{
		ConsentGiven:        rec.ConsentGiven,
		AutoTrackingEnabled: rec.AutoTrackingEnabled,
		UpdatedAt:           rec.UpdatedAt.Format(time.RFC3339),
	})
}

// StartTracking implements TrackingHandler.
func (h *trackingHandlerImpl) StartTracking(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	sess, err := h.sessionService.GetSession(r.Context(), sessionID, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	err = h.coordinator.Start(r.Context(), sess.ID, sess.EmployeeID, identity.CompanyID)
	if err != nil && err != tracker.ErrAlreadyTracking {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Tracking started", nil)
}

// StopTracking implements TrackingHandler.
func (h *trackingHandlerImpl) StopTracking(w http.ResponseWriter, r *http.Request) {
	identity, err := jwt.FromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	if _, err := h.sessionService.GetSession(r.Context(), sessionID, identity.CompanyID); err != nil {
		response.HandleError(w, err)
		return
	}

	h.coordinator.Stop(sessionID)
	response.SuccessWithMessage(w, "Tracking stopped", nil)
}
