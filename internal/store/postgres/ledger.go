package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

const assignmentColumns = `id, service_id, technician_id, role, status, assigned_by, assigned_at, removed_at, removed_by, notes, created_at, updated_at`

func scanAssignment(row pgx.Row) (models.Assignment, error) {
	var assignment models.Assignment
	var assignedByNull, removedByNull, notesNull sql.NullString
	var removedAtNull sql.NullTime
	err := row.Scan(
		&assignment.ID,
		&assignment.ServiceID,
		&assignment.TechnicianID,
		&assignment.Role,
		&assignment.Status,
		&assignedByNull,
		&assignment.AssignedAt,
		&removedAtNull,
		&removedByNull,
		&notesNull,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		return models.Assignment{}, err
	}
	assignment.AssignedBy = nullStringPtr(assignedByNull)
	assignment.RemovedAt = nullTimePtr(removedAtNull)
	assignment.RemovedBy = nullStringPtr(removedByNull)
	if notesNull.Valid {
		assignment.Notes = notesNull.String
	}
	return assignment, nil
}

// AssignTechnician writes one ledger row. For the lead role it also updates
// the service's denormalized lead pointer and advances pending services to
// assigned, all in one transaction: readers never observe a lead row without
// the service update or vice versa.
func (s *Store) AssignTechnician(ctx context.Context, input store.AssignInput) (models.Assignment, error) {
	var assignment models.Assignment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var status models.ServiceStatus
		err := tx.QueryRow(ctx, `SELECT status FROM services WHERE id = $1 FOR UPDATE`, input.ServiceID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrServiceNotFound
			}
			return err
		}
		if status == models.ServiceStatusCompleted || status == models.ServiceStatusCancelled {
			return store.ErrInvalidState
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)`, input.TechnicianID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrTechnicianNotFound
		}

		assignedAt := input.AssignedAt
		if assignedAt.IsZero() {
			assignedAt = time.Now().UTC()
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO service_assignments (id, service_id, technician_id, role, status, assigned_by, assigned_at, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+assignmentColumns+`
		`, uuid.NewString(), input.ServiceID, input.TechnicianID, input.Role, models.AssignmentStatusAssigned, nullIfEmpty(input.AssignedBy), assignedAt, input.Notes)
		assignment, err = scanAssignment(row)
		if err != nil {
			switch {
			case constraintViolated(err, uniqActiveAssignment):
				return store.ErrAlreadyAssigned
			case constraintViolated(err, uniqServiceLead):
				return store.ErrLeadAlreadyAssigned
			}
			return err
		}

		if input.Role == models.RoleLead {
			_, err = tx.Exec(ctx, `
				UPDATE services
				SET assigned_technician_id = $2,
					status = CASE WHEN status = 'pending' THEN 'assigned' ELSE status END,
					updated_at = now()
				WHERE id = $1
			`, input.ServiceID, input.TechnicianID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

// UpdateAssignment patches role, status, or notes on an active assignment.
// Promoting to lead competes under the same unique index as AssignTechnician;
// demoting from lead clears the service's lead pointer.
func (s *Store) UpdateAssignment(ctx context.Context, assignmentID string, patch store.UpdateAssignmentInput) (models.Assignment, error) {
	var assignment models.Assignment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := scanAssignment(tx.QueryRow(ctx, `
			SELECT `+assignmentColumns+`
			FROM service_assignments
			WHERE id = $1 AND status <> 'removed'
			FOR UPDATE
		`, assignmentID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrAssignmentNotFound
			}
			return err
		}

		role := current.Role
		if patch.Role != nil {
			role = *patch.Role
		}
		status := current.Status
		if patch.Status != nil {
			status = *patch.Status
		}
		notes := current.Notes
		if patch.Notes != nil {
			notes = *patch.Notes
		}

		row := tx.QueryRow(ctx, `
			UPDATE service_assignments
			SET role = $2, status = $3, notes = $4, updated_at = now()
			WHERE id = $1
			RETURNING `+assignmentColumns+`
		`, assignmentID, role, status, notes)
		assignment, err = scanAssignment(row)
		if err != nil {
			if constraintViolated(err, uniqServiceLead) {
				return store.ErrLeadAlreadyAssigned
			}
			return err
		}

		switch {
		case current.Role != models.RoleLead && role == models.RoleLead:
			_, err = tx.Exec(ctx, `
				UPDATE services
				SET assigned_technician_id = $2,
					status = CASE WHEN status = 'pending' THEN 'assigned' ELSE status END,
					updated_at = now()
				WHERE id = $1
			`, assignment.ServiceID, assignment.TechnicianID)
		case current.Role == models.RoleLead && role != models.RoleLead:
			_, err = tx.Exec(ctx, `
				UPDATE services
				SET assigned_technician_id = NULL, updated_at = now()
				WHERE id = $1 AND assigned_technician_id = $2
			`, assignment.ServiceID, assignment.TechnicianID)
		}
		return err
	})
	if err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

// RemoveAssignment marks the row removed (never hard-deletes). Removing the
// lead clears the service's lead pointer; the service status is untouched.
func (s *Store) RemoveAssignment(ctx context.Context, assignmentID, removedBy string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var serviceID, technicianID string
		var role models.AssignmentRole
		err := tx.QueryRow(ctx, `
			UPDATE service_assignments
			SET status = 'removed', removed_at = now(), removed_by = $2, updated_at = now()
			WHERE id = $1 AND status <> 'removed'
			RETURNING service_id, technician_id, role
		`, assignmentID, nullIfEmpty(removedBy)).Scan(&serviceID, &technicianID, &role)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrAssignmentNotFound
			}
			return err
		}

		if role == models.RoleLead {
			_, err = tx.Exec(ctx, `
				UPDATE services
				SET assigned_technician_id = NULL, updated_at = now()
				WHERE id = $1 AND assigned_technician_id = $2
			`, serviceID, technicianID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListTeam returns the active team on a service, oldest assignment first.
func (s *Store) ListTeam(ctx context.Context, serviceID string) ([]models.Assignment, error) {
	if err := s.ensureServiceExists(ctx, serviceID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM service_assignments
		WHERE service_id = $1 AND status <> 'removed'
		ORDER BY assigned_at ASC
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var team []models.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		team = append(team, assignment)
	}
	return team, rows.Err()
}

// ListAvailableTechnicians returns technicians not already on this service's
// active team.
func (s *Store) ListAvailableTechnicians(ctx context.Context, serviceID string) ([]models.Technician, error) {
	if err := s.ensureServiceExists(ctx, serviceID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, technicianQuery(`
		WHERE e.role = 'technician'
			AND NOT EXISTS (
				SELECT 1 FROM service_assignments a
				WHERE a.service_id = $1 AND a.technician_id = e.id AND a.status <> 'removed'
			)
	`), serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTechnicians(rows)
}

func (s *Store) ensureServiceExists(ctx context.Context, serviceID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, serviceID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrServiceNotFound
	}
	return nil
}
