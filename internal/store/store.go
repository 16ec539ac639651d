package store

import (
	"context"
	"time"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
)

type AssignInput struct {
	ServiceID    string
	TechnicianID string
	Role         models.AssignmentRole
	AssignedBy   string
	Notes        string
	AssignedAt   time.Time
}

type UpdateAssignmentInput struct {
	Role   *models.AssignmentRole
	Status *models.AssignmentStatus
	Notes  *string
}

// CheckInput carries a check-in/out attempt. Latitude/Longitude are nil when
// the technician proceeds without a location fix; the attempt is still
// recorded, with GPS validity false.
type CheckInput struct {
	ServiceID    string
	TechnicianID string
	Latitude     *float64
	Longitude    *float64
	At           time.Time
}

type CheckResult struct {
	Service   models.Service `json:"service"`
	DistanceM *float64       `json:"distance_m,omitempty"`
	GPSValid  bool           `json:"gps_valid"`
}

type DispatchStore interface {
	// Assignment ledger.
	AssignTechnician(ctx context.Context, input AssignInput) (models.Assignment, error)
	UpdateAssignment(ctx context.Context, assignmentID string, patch UpdateAssignmentInput) (models.Assignment, error)
	RemoveAssignment(ctx context.Context, assignmentID, removedBy string) error
	ListTeam(ctx context.Context, serviceID string) ([]models.Assignment, error)
	ListAvailableTechnicians(ctx context.Context, serviceID string) ([]models.Technician, error)

	// Service lifecycle.
	GetService(ctx context.Context, serviceID string) (models.Service, bool, error)
	CheckIn(ctx context.Context, input CheckInput) (CheckResult, error)
	CheckOut(ctx context.Context, input CheckInput) (CheckResult, error)

	// Auto-dispatch reads.
	ListPendingServices(ctx context.Context) ([]models.Service, error)
	ListDispatchableTechnicians(ctx context.Context) ([]models.Technician, error)

	// Availability directory reads.
	ListSchedules(ctx context.Context, technicianIDs []string, dayOfWeek int) (map[string]models.ScheduleEntry, error)
	ListTimeOff(ctx context.Context, technicianIDs []string, date time.Time) (map[string][]models.TimeOffRange, error)

	// Notification sink.
	InsertNotification(ctx context.Context, notification models.Notification) error
	ListDispatcherIDs(ctx context.Context) ([]string, error)

	// Geofence audit.
	ListGeofenceEvents(ctx context.Context, serviceID string) ([]models.GeofenceEvent, error)
}
