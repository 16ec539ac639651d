package models

import "time"

const (
	GeofenceEventCheckIn  = "check_in"
	GeofenceEventCheckOut = "check_out"
)

// GeofenceEvent is one append-only audit row per check-in/out attempt.
// Coordinates and distance are nil when the technician proceeded without a
// usable location fix.
type GeofenceEvent struct {
	ID           string    `json:"id"`
	ServiceID    string    `json:"service_id"`
	TechnicianID string    `json:"technician_id"`
	EventType    string    `json:"event_type"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	DistanceM    *float64  `json:"distance_m,omitempty"`
	Valid        bool      `json:"valid"`
	CreatedAt    time.Time `json:"created_at"`
}
