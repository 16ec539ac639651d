package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/DaveCybr/field-service-hub-sub004/internal/availability"
	"github.com/DaveCybr/field-service-hub-sub004/internal/dispatch"
	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

type fakeStore struct {
	assignFn        func(ctx context.Context, input store.AssignInput) (models.Assignment, error)
	updateFn        func(ctx context.Context, assignmentID string, patch store.UpdateAssignmentInput) (models.Assignment, error)
	removeFn        func(ctx context.Context, assignmentID, removedBy string) error
	teamFn          func(ctx context.Context, serviceID string) ([]models.Assignment, error)
	availableFn     func(ctx context.Context, serviceID string) ([]models.Technician, error)
	getServiceFn    func(ctx context.Context, serviceID string) (models.Service, bool, error)
	checkInFn       func(ctx context.Context, input store.CheckInput) (store.CheckResult, error)
	checkOutFn      func(ctx context.Context, input store.CheckInput) (store.CheckResult, error)
	pendingFn       func(ctx context.Context) ([]models.Service, error)
	techniciansFn   func(ctx context.Context) ([]models.Technician, error)
	schedulesFn     func(ctx context.Context, technicianIDs []string, dayOfWeek int) (map[string]models.ScheduleEntry, error)
	timeOffFn       func(ctx context.Context, technicianIDs []string, date time.Time) (map[string][]models.TimeOffRange, error)
	notifyFn        func(ctx context.Context, notification models.Notification) error
	dispatchersFn   func(ctx context.Context) ([]string, error)
	geofenceEvtsFn  func(ctx context.Context, serviceID string) ([]models.GeofenceEvent, error)
}

func (f fakeStore) AssignTechnician(ctx context.Context, input store.AssignInput) (models.Assignment, error) {
	if f.assignFn == nil {
		return models.Assignment{}, nil
	}
	return f.assignFn(ctx, input)
}

func (f fakeStore) UpdateAssignment(ctx context.Context, assignmentID string, patch store.UpdateAssignmentInput) (models.Assignment, error) {
	if f.updateFn == nil {
		return models.Assignment{}, nil
	}
	return f.updateFn(ctx, assignmentID, patch)
}

func (f fakeStore) RemoveAssignment(ctx context.Context, assignmentID, removedBy string) error {
	if f.removeFn == nil {
		return nil
	}
	return f.removeFn(ctx, assignmentID, removedBy)
}

func (f fakeStore) ListTeam(ctx context.Context, serviceID string) ([]models.Assignment, error) {
	if f.teamFn == nil {
		return nil, nil
	}
	return f.teamFn(ctx, serviceID)
}

func (f fakeStore) ListAvailableTechnicians(ctx context.Context, serviceID string) ([]models.Technician, error) {
	if f.availableFn == nil {
		return nil, nil
	}
	return f.availableFn(ctx, serviceID)
}

func (f fakeStore) GetService(ctx context.Context, serviceID string) (models.Service, bool, error) {
	if f.getServiceFn == nil {
		return models.Service{}, false, nil
	}
	return f.getServiceFn(ctx, serviceID)
}

func (f fakeStore) CheckIn(ctx context.Context, input store.CheckInput) (store.CheckResult, error) {
	if f.checkInFn == nil {
		return store.CheckResult{}, nil
	}
	return f.checkInFn(ctx, input)
}

func (f fakeStore) CheckOut(ctx context.Context, input store.CheckInput) (store.CheckResult, error) {
	if f.checkOutFn == nil {
		return store.CheckResult{}, nil
	}
	return f.checkOutFn(ctx, input)
}

func (f fakeStore) ListPendingServices(ctx context.Context) ([]models.Service, error) {
	if f.pendingFn == nil {
		return nil, nil
	}
	return f.pendingFn(ctx)
}

func (f fakeStore) ListDispatchableTechnicians(ctx context.Context) ([]models.Technician, error) {
	if f.techniciansFn == nil {
		return nil, nil
	}
	return f.techniciansFn(ctx)
}

func (f fakeStore) ListSchedules(ctx context.Context, technicianIDs []string, dayOfWeek int) (map[string]models.ScheduleEntry, error) {
	if f.schedulesFn == nil {
		return nil, nil
	}
	return f.schedulesFn(ctx, technicianIDs, dayOfWeek)
}

func (f fakeStore) ListTimeOff(ctx context.Context, technicianIDs []string, date time.Time) (map[string][]models.TimeOffRange, error) {
	if f.timeOffFn == nil {
		return nil, nil
	}
	return f.timeOffFn(ctx, technicianIDs, date)
}

func (f fakeStore) InsertNotification(ctx context.Context, notification models.Notification) error {
	if f.notifyFn == nil {
		return nil
	}
	return f.notifyFn(ctx, notification)
}

func (f fakeStore) ListDispatcherIDs(ctx context.Context) ([]string, error) {
	if f.dispatchersFn == nil {
		return nil, nil
	}
	return f.dispatchersFn(ctx)
}

func (f fakeStore) ListGeofenceEvents(ctx context.Context, serviceID string) ([]models.GeofenceEvent, error) {
	if f.geofenceEvtsFn == nil {
		return nil, nil
	}
	return f.geofenceEvtsFn(ctx, serviceID)
}

type fakeResolver struct {
	checkAllFn func(ctx context.Context, technicianIDs []string, date time.Time) (map[string]availability.Result, error)
}

func (f fakeResolver) CheckAll(ctx context.Context, technicianIDs []string, date time.Time) (map[string]availability.Result, error) {
	if f.checkAllFn == nil {
		return map[string]availability.Result{}, nil
	}
	return f.checkAllFn(ctx, technicianIDs, date)
}

func newTestHandler(st fakeStore, resolver fakeResolver, runDispatch DispatchFunc) http.Handler {
	return NewHandler(st, resolver, runDispatch, zerolog.Nop()).Routes()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestAssignTechnicianThreadsDispatcherID(t *testing.T) {
	serviceID := uuid.NewString()
	technicianID := uuid.NewString()
	dispatcherID := uuid.NewString()

	var got store.AssignInput
	st := fakeStore{
		assignFn: func(_ context.Context, input store.AssignInput) (models.Assignment, error) {
			got = input
			return models.Assignment{ID: uuid.NewString(), ServiceID: input.ServiceID, TechnicianID: input.TechnicianID, Role: input.Role}, nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/assignments", map[string]string{
		"service_id":    serviceID,
		"technician_id": technicianID,
		"role":          "senior",
		"notes":         "bring ladder",
	}, map[string]string{"X-Dispatcher-ID": dispatcherID})

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, serviceID, got.ServiceID)
	require.Equal(t, technicianID, got.TechnicianID)
	require.Equal(t, models.RoleSenior, got.Role)
	require.Equal(t, dispatcherID, got.AssignedBy)
	require.Equal(t, "bring ladder", got.Notes)
}

func TestAssignTechnicianRejectsBadRole(t *testing.T) {
	handler := newTestHandler(fakeStore{}, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/assignments", map[string]string{
		"service_id":    uuid.NewString(),
		"technician_id": uuid.NewString(),
		"role":          "captain",
	}, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, "invalid_request", response.Error.Code)
}

func TestAssignTechnicianLeadConflict(t *testing.T) {
	st := fakeStore{
		assignFn: func(context.Context, store.AssignInput) (models.Assignment, error) {
			return models.Assignment{}, store.ErrLeadAlreadyAssigned
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/assignments", map[string]string{
		"service_id":    uuid.NewString(),
		"technician_id": uuid.NewString(),
		"role":          "lead",
	}, nil)

	require.Equal(t, http.StatusConflict, recorder.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, "lead_already_assigned", response.Error.Code)
}

func TestRemoveAssignmentThreadsDispatcherID(t *testing.T) {
	assignmentID := uuid.NewString()
	dispatcherID := uuid.NewString()
	var gotID, gotBy string
	st := fakeStore{
		removeFn: func(_ context.Context, id, removedBy string) error {
			gotID, gotBy = id, removedBy
			return nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/assignments/"+assignmentID, nil)
	req.Header.Set("X-Dispatcher-ID", dispatcherID)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, assignmentID, gotID)
	require.Equal(t, dispatcherID, gotBy)
}

func TestAssignTechnicianRejectsMalformedDispatcherID(t *testing.T) {
	handler := newTestHandler(fakeStore{}, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/assignments", map[string]string{
		"service_id":    uuid.NewString(),
		"technician_id": uuid.NewString(),
		"role":          "helper",
	}, map[string]string{"X-Dispatcher-ID": "not-a-uuid"})

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRemoveAssignmentNotFound(t *testing.T) {
	st := fakeStore{
		removeFn: func(context.Context, string, string) error {
			return store.ErrAssignmentNotFound
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/assignments/"+uuid.NewString(), nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdateAssignmentRequiresAField(t *testing.T) {
	handler := newTestHandler(fakeStore{}, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/assignments/"+uuid.NewString(), bytes.NewReader([]byte(`{}`)))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateAssignmentPatchesRole(t *testing.T) {
	assignmentID := uuid.NewString()
	var got store.UpdateAssignmentInput
	st := fakeStore{
		updateFn: func(_ context.Context, id string, patch store.UpdateAssignmentInput) (models.Assignment, error) {
			require.Equal(t, assignmentID, id)
			got = patch
			return models.Assignment{ID: id, Role: *patch.Role}, nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/assignments/"+assignmentID, bytes.NewReader([]byte(`{"role":"lead"}`)))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, got.Role)
	require.Equal(t, models.RoleLead, *got.Role)
	require.Nil(t, got.Status)
	require.Nil(t, got.Notes)
}

func TestGetServiceNotFound(t *testing.T) {
	st := fakeStore{
		getServiceFn: func(context.Context, string) (models.Service, bool, error) {
			return models.Service{}, false, nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/services/"+uuid.NewString(), nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCheckInWithLocationErrorStillSucceeds(t *testing.T) {
	serviceID := uuid.NewString()
	technicianID := uuid.NewString()
	st := fakeStore{
		checkInFn: func(_ context.Context, input store.CheckInput) (store.CheckResult, error) {
			require.Nil(t, input.Latitude)
			require.Nil(t, input.Longitude)
			return store.CheckResult{Service: models.Service{ID: input.ServiceID, Status: models.ServiceStatusInProgress}, GPSValid: false}, nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/services/"+serviceID+"/check-in", map[string]interface{}{
		"technician_id":  technicianID,
		"location_error": "timeout",
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response checkResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.False(t, response.GPSValid)
	require.NotNil(t, response.LocationError)
	require.Equal(t, "timeout", response.LocationError.Code)
	require.Contains(t, response.LocationError.Message, "refresh")
}

func TestCheckInRejectsLatitudeWithoutLongitude(t *testing.T) {
	handler := newTestHandler(fakeStore{}, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/services/"+uuid.NewString()+"/check-in", map[string]interface{}{
		"technician_id": uuid.NewString(),
		"latitude":      -6.2,
	}, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCheckInNotOnTeam(t *testing.T) {
	st := fakeStore{
		checkInFn: func(context.Context, store.CheckInput) (store.CheckResult, error) {
			return store.CheckResult{}, store.ErrTechnicianNotAssigned
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	recorder := postJSON(t, handler, "/api/services/"+uuid.NewString()+"/check-in", map[string]interface{}{
		"technician_id": uuid.NewString(),
	}, nil)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCheckOutTriggersDispatchRun(t *testing.T) {
	serviceID := uuid.NewString()
	st := fakeStore{
		checkOutFn: func(_ context.Context, input store.CheckInput) (store.CheckResult, error) {
			return store.CheckResult{Service: models.Service{ID: input.ServiceID, Status: models.ServiceStatusCompleted}}, nil
		},
	}

	triggered := make(chan string, 1)
	runDispatch := func(_ context.Context, trigger string) (dispatch.Summary, error) {
		triggered <- trigger
		return dispatch.Summary{Trigger: trigger}, nil
	}
	handler := newTestHandler(st, fakeResolver{}, runDispatch)

	recorder := postJSON(t, handler, "/api/services/"+serviceID+"/check-out", map[string]interface{}{
		"technician_id": uuid.NewString(),
		"latitude":      -6.2,
		"longitude":     106.8,
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	select {
	case trigger := <-triggered:
		require.Equal(t, "check_out", trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch run was not triggered after check-out")
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	firstID := uuid.NewString()
	secondID := uuid.NewString()

	resolver := fakeResolver{
		checkAllFn: func(_ context.Context, technicianIDs []string, date time.Time) (map[string]availability.Result, error) {
			require.ElementsMatch(t, []string{firstID, secondID}, technicianIDs)
			require.Equal(t, "2026-03-11", date.Format("2006-01-02"))
			return map[string]availability.Result{
				firstID:  {Available: true, WorkingHours: "08:00 - 17:00"},
				secondID: {Available: false, Reason: "on approved leave"},
			}, nil
		},
	}
	handler := newTestHandler(fakeStore{}, resolver, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/technicians/availability?ids="+firstID+","+secondID+"&date=2026-03-11", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var results map[string]availability.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &results))
	require.True(t, results[firstID].Available)
	require.False(t, results[secondID].Available)
}

func TestAvailabilityRequiresIDs(t *testing.T) {
	handler := newTestHandler(fakeStore{}, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/technicians/availability", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDispatchRunReturnsSummary(t *testing.T) {
	runDispatch := func(_ context.Context, trigger string) (dispatch.Summary, error) {
		return dispatch.Summary{Trigger: trigger, Scanned: 4, Assigned: 2, Skipped: 2}, nil
	}
	handler := newTestHandler(fakeStore{}, fakeResolver{}, runDispatch)

	recorder := postJSON(t, handler, "/api/dispatch/run", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var summary dispatch.Summary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summary))
	require.Equal(t, "manual", summary.Trigger)
	require.Equal(t, 2, summary.Assigned)
}

func TestGeofenceEventsEndpoint(t *testing.T) {
	serviceID := uuid.NewString()
	distance := 42.5
	st := fakeStore{
		geofenceEvtsFn: func(_ context.Context, id string) ([]models.GeofenceEvent, error) {
			require.Equal(t, serviceID, id)
			return []models.GeofenceEvent{{ID: uuid.NewString(), ServiceID: id, EventType: models.GeofenceEventCheckIn, DistanceM: &distance, Valid: true}}, nil
		},
	}
	handler := newTestHandler(st, fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/services/"+serviceID+"/geofence-events", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var events []models.GeofenceEvent
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &events))
	require.Len(t, events, 1)
	require.True(t, events[0].Valid)
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 1, IPBurst: 2, DispatcherPerMinute: 1000, DispatcherBurst: 1000})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		last = recorder.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
