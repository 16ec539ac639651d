package store

import "errors"

var (
	ErrServiceNotFound       = errors.New("service not found")
	ErrTechnicianNotFound    = errors.New("technician not found")
	ErrAssignmentNotFound    = errors.New("assignment not found")
	ErrAlreadyAssigned       = errors.New("technician already assigned to service")
	ErrLeadAlreadyAssigned   = errors.New("service already has a lead technician")
	ErrInvalidState          = errors.New("service state does not allow this action")
	ErrNoCheckIn             = errors.New("service has no check-in recorded")
	ErrAlreadyCheckedIn      = errors.New("service already checked in")
	ErrAlreadyCheckedOut     = errors.New("service already checked out")
	ErrTechnicianNotAssigned = errors.New("technician is not assigned to this service")
)
