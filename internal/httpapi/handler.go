package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/DaveCybr/field-service-hub-sub004/internal/availability"
	"github.com/DaveCybr/field-service-hub-sub004/internal/dispatch"
	"github.com/DaveCybr/field-service-hub-sub004/internal/geo"
	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

// AvailabilityChecker resolves technician availability for a date.
type AvailabilityChecker interface {
	CheckAll(ctx context.Context, technicianIDs []string, date time.Time) (map[string]availability.Result, error)
}

// DispatchFunc runs one auto-dispatch batch.
type DispatchFunc func(ctx context.Context, trigger string) (dispatch.Summary, error)

type Handler struct {
	store       store.DispatchStore
	resolver    AvailabilityChecker
	runDispatch DispatchFunc
	log         zerolog.Logger
}

func NewHandler(st store.DispatchStore, resolver AvailabilityChecker, runDispatch DispatchFunc, log zerolog.Logger) *Handler {
	return &Handler{
		store:       st,
		resolver:    resolver,
		runDispatch: runDispatch,
		log:         log,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/assignments", h.handleAssignments)
	mux.HandleFunc("/api/assignments/", h.handleAssignmentByID)
	mux.HandleFunc("/api/services/", h.handleServiceActions)
	mux.HandleFunc("/api/technicians/availability", h.handleAvailability)
	mux.HandleFunc("/api/dispatch/run", h.handleDispatchRun)
	return mux
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type assignRequest struct {
	ServiceID    string `json:"service_id"`
	TechnicianID string `json:"technician_id"`
	Role         string `json:"role"`
	Notes        string `json:"notes"`
}

type updateAssignmentRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

type checkRequest struct {
	TechnicianID  string   `json:"technician_id"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	LocationError string   `json:"location_error"`
}

// checkResponse wraps the store result with the classified location error, if
// the client reported one. GPS problems never block the action itself.
type checkResponse struct {
	store.CheckResult
	LocationError *geo.LocationError `json:"location_error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleAssignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requestID := requestIDOf(r)
	var req assignRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.TechnicianID = strings.TrimSpace(req.TechnicianID)
	req.Role = strings.TrimSpace(req.Role)
	req.Notes = strings.TrimSpace(req.Notes)

	if req.ServiceID == "" || req.TechnicianID == "" || req.Role == "" {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "service_id, technician_id, and role are required")
		return
	}
	if !isValidUUID(req.ServiceID) || !isValidUUID(req.TechnicianID) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "service_id and technician_id must be UUIDs")
		return
	}
	role := models.AssignmentRole(req.Role)
	if !models.ValidRole(role) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "role must be one of lead, senior, junior, helper")
		return
	}
	if id := dispatcherIDOf(r); id != "" && !isValidUUID(id) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "X-Dispatcher-ID must be a UUID")
		return
	}

	assignment, err := h.store.AssignTechnician(r.Context(), store.AssignInput{
		ServiceID:    req.ServiceID,
		TechnicianID: req.TechnicianID,
		Role:         role,
		AssignedBy:   dispatcherIDOf(r),
		Notes:        req.Notes,
		AssignedAt:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, assignment)
}

func (h *Handler) handleAssignmentByID(w http.ResponseWriter, r *http.Request) {
	assignmentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/assignments/"), "/")
	requestID := requestIDOf(r)
	if !isValidUUID(assignmentID) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "assignment id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		h.handleUpdateAssignment(w, r, assignmentID)
	case http.MethodDelete:
		h.handleRemoveAssignment(w, r, assignmentID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleUpdateAssignment(w http.ResponseWriter, r *http.Request, assignmentID string) {
	requestID := requestIDOf(r)
	var req updateAssignmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.Role == nil && req.Status == nil && req.Notes == nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "at least one of role, status, notes is required")
		return
	}

	var patch store.UpdateAssignmentInput
	if req.Role != nil {
		role := models.AssignmentRole(strings.TrimSpace(*req.Role))
		if !models.ValidRole(role) {
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", "role must be one of lead, senior, junior, helper")
			return
		}
		patch.Role = &role
	}
	if req.Status != nil {
		status := models.AssignmentStatus(strings.TrimSpace(*req.Status))
		switch status {
		case models.AssignmentStatusAssigned, models.AssignmentStatusInProgress, models.AssignmentStatusCompleted:
		default:
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", "status must be one of assigned, in_progress, completed")
			return
		}
		patch.Status = &status
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		patch.Notes = &notes
	}

	assignment, err := h.store.UpdateAssignment(r.Context(), assignmentID, patch)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

func (h *Handler) handleRemoveAssignment(w http.ResponseWriter, r *http.Request, assignmentID string) {
	requestID := requestIDOf(r)
	if id := dispatcherIDOf(r); id != "" && !isValidUUID(id) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "X-Dispatcher-ID must be a UUID")
		return
	}
	if err := h.store.RemoveAssignment(r.Context(), assignmentID, dispatcherIDOf(r)); err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceActions(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDOf(r)
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/services/"), "/")
	parts := strings.Split(path, "/")

	serviceID := parts[0]
	if !isValidUUID(serviceID) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "service id must be a UUID")
		return
	}

	if len(parts) == 1 {
		h.handleGetService(w, r, serviceID)
		return
	}
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "team":
		h.handleTeam(w, r, serviceID)
	case "available-technicians":
		h.handleAvailableTechnicians(w, r, serviceID)
	case "check-in":
		h.handleCheck(w, r, serviceID, h.store.CheckIn, "")
	case "check-out":
		h.handleCheck(w, r, serviceID, h.store.CheckOut, "check_out")
	case "geofence-events":
		h.handleGeofenceEvents(w, r, serviceID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request, serviceID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	service, found, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDOf(r), status, code, msg)
		return
	}
	if !found {
		writeError(w, requestIDOf(r), http.StatusNotFound, "service_not_found", "service not found")
		return
	}

	writeJSON(w, http.StatusOK, service)
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request, serviceID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	team, err := h.store.ListTeam(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDOf(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) handleAvailableTechnicians(w http.ResponseWriter, r *http.Request, serviceID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	technicians, err := h.store.ListAvailableTechnicians(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDOf(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, technicians)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request, serviceID string, action func(context.Context, store.CheckInput) (store.CheckResult, error), dispatchTrigger string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requestID := requestIDOf(r)
	var req checkRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.TechnicianID = strings.TrimSpace(req.TechnicianID)
	req.LocationError = strings.TrimSpace(req.LocationError)
	if req.TechnicianID == "" {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "technician_id is required")
		return
	}
	if !isValidUUID(req.TechnicianID) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "technician_id must be a UUID")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "latitude and longitude must be provided together")
		return
	}

	result, err := action(r.Context(), store.CheckInput{
		ServiceID:    serviceID,
		TechnicianID: req.TechnicianID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		At:           time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID, status, code, msg)
		return
	}

	response := checkResponse{CheckResult: result}
	if req.Latitude == nil && req.LocationError != "" {
		classified := geo.ClassifyLocationError(req.LocationError)
		response.LocationError = &classified
	}

	// A completed service may free the technician for more work; kick a
	// dispatch batch without holding up the response.
	if dispatchTrigger != "" && h.runDispatch != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := h.runDispatch(ctx, dispatchTrigger); err != nil {
				h.log.Error().Err(err).Str("trigger", dispatchTrigger).Msg("post-checkout dispatch run failed")
			}
		}()
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleGeofenceEvents(w http.ResponseWriter, r *http.Request, serviceID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	events, err := h.store.ListGeofenceEvents(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDOf(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requestID := requestIDOf(r)
	idsRaw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if idsRaw == "" {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "ids is required")
		return
	}
	var ids []string
	for _, id := range strings.Split(idsRaw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !isValidUUID(id) {
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", "ids must be comma-separated UUIDs")
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "ids is required")
		return
	}

	date := time.Now().UTC()
	if dateRaw := strings.TrimSpace(r.URL.Query().Get("date")); dateRaw != "" {
		parsed, err := time.Parse("2006-01-02", dateRaw)
		if err != nil {
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	results, err := h.resolver.CheckAll(r.Context(), ids, date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleDispatchRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.runDispatch == nil {
		writeError(w, requestIDOf(r), http.StatusServiceUnavailable, "dispatch_disabled", "auto-dispatch is not enabled")
		return
	}

	summary, err := h.runDispatch(r.Context(), "manual")
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDOf(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// dispatcherIDOf identifies who performed a write. The gateway authenticates
// dispatchers and forwards their id; the engine only records it.
func dispatcherIDOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Dispatcher-ID"))
}

func requestIDOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrTechnicianNotFound):
		return http.StatusNotFound, "technician_not_found", "technician not found"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return http.StatusNotFound, "assignment_not_found", "assignment not found"
	case errors.Is(err, store.ErrAlreadyAssigned):
		return http.StatusConflict, "already_assigned", "technician is already assigned to this service"
	case errors.Is(err, store.ErrLeadAlreadyAssigned):
		return http.StatusConflict, "lead_already_assigned", "service already has a lead technician"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "service state does not allow this action"
	case errors.Is(err, store.ErrTechnicianNotAssigned):
		return http.StatusForbidden, "technician_not_assigned", "technician is not assigned to this service"
	case errors.Is(err, store.ErrNoCheckIn):
		return http.StatusConflict, "no_check_in", "service has no check-in to check out from"
	case errors.Is(err, store.ErrAlreadyCheckedIn):
		return http.StatusConflict, "already_checked_in", "service already has a check-in recorded"
	case errors.Is(err, store.ErrAlreadyCheckedOut):
		return http.StatusConflict, "already_checked_out", "service already has a check-out recorded"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
