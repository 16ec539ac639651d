package models

import "time"

type ServiceStatus string

const (
	ServiceStatusPending    ServiceStatus = "pending"
	ServiceStatusAssigned   ServiceStatus = "assigned"
	ServiceStatusInProgress ServiceStatus = "in_progress"
	ServiceStatusCompleted  ServiceStatus = "completed"
	ServiceStatusCancelled  ServiceStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityRank orders priorities for dispatch: higher rank is served first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 0
	}
}

type Service struct {
	ID                   string        `json:"id"`
	InvoiceID            *string       `json:"invoice_id,omitempty"`
	Title                string        `json:"title"`
	Description          string        `json:"description,omitempty"`
	RequiredSkills       []string      `json:"required_skills"`
	Priority             Priority      `json:"priority"`
	Status               ServiceStatus `json:"status"`
	ScheduledStart       *time.Time    `json:"scheduled_start,omitempty"`
	ScheduledEnd         *time.Time    `json:"scheduled_end,omitempty"`
	Latitude             *float64      `json:"latitude,omitempty"`
	Longitude            *float64      `json:"longitude,omitempty"`
	AssignedTechnicianID *string       `json:"assigned_technician_id,omitempty"`
	CheckinAt            *time.Time    `json:"checkin_at,omitempty"`
	CheckoutAt           *time.Time    `json:"checkout_at,omitempty"`
	CheckinGPSValid      *bool         `json:"checkin_gps_valid,omitempty"`
	CheckoutGPSValid     *bool         `json:"checkout_gps_valid,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}
