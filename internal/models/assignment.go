package models

import "time"

type AssignmentRole string

const (
	RoleLead   AssignmentRole = "lead"
	RoleSenior AssignmentRole = "senior"
	RoleJunior AssignmentRole = "junior"
	RoleHelper AssignmentRole = "helper"
)

func ValidRole(role AssignmentRole) bool {
	switch role {
	case RoleLead, RoleSenior, RoleJunior, RoleHelper:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusRemoved    AssignmentStatus = "removed"
)

// Assignment is one row of the assignment ledger: one technician on one
// service. A technician holds at most one non-removed row per service, and a
// service holds at most one non-removed lead row; both are enforced by
// partial unique indexes.
type Assignment struct {
	ID           string           `json:"id"`
	ServiceID    string           `json:"service_id"`
	TechnicianID string           `json:"technician_id"`
	Role         AssignmentRole   `json:"role"`
	Status       AssignmentStatus `json:"status"`
	AssignedBy   *string          `json:"assigned_by,omitempty"`
	AssignedAt   time.Time        `json:"assigned_at"`
	RemovedAt    *time.Time       `json:"removed_at,omitempty"`
	RemovedBy    *string          `json:"removed_by,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
