package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
)

func technicianQuery(where string) string {
	return `
		SELECT e.id, e.name, e.email, e.phone, e.role, e.status, e.rating, e.total_jobs_completed,
			COALESCE(array_agg(s.skill ORDER BY s.skill) FILTER (WHERE s.skill IS NOT NULL), '{}'),
			e.created_at, e.updated_at
		FROM employees e
		LEFT JOIN employee_skills s ON s.employee_id = e.id
		` + where + `
		GROUP BY e.id
		ORDER BY e.name ASC
	`
}

func collectTechnicians(rows pgx.Rows) ([]models.Technician, error) {
	var technicians []models.Technician
	for rows.Next() {
		var technician models.Technician
		var emailNull, phoneNull sql.NullString
		if err := rows.Scan(
			&technician.ID,
			&technician.Name,
			&emailNull,
			&phoneNull,
			&technician.Role,
			&technician.Status,
			&technician.Rating,
			&technician.TotalJobsCompleted,
			&technician.Skills,
			&technician.CreatedAt,
			&technician.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if emailNull.Valid {
			technician.Email = emailNull.String
		}
		if phoneNull.Valid {
			technician.Phone = phoneNull.String
		}
		technicians = append(technicians, technician)
	}
	return technicians, rows.Err()
}

// ListPendingServices returns services eligible for auto-dispatch: status
// pending with no active lead, highest priority first, oldest first within a
// priority.
func (s *Store) ListPendingServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE status = 'pending'
			AND NOT EXISTS (
				SELECT 1 FROM service_assignments a
				WHERE a.service_id = services.id AND a.role = 'lead' AND a.status <> 'removed'
			)
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 3
				WHEN 'high' THEN 2
				WHEN 'normal' THEN 1
				ELSE 0
			END DESC,
			created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

// ListDispatchableTechnicians returns technicians in the auto-dispatch
// candidate pool: available, or already on a job and queueable for the next.
func (s *Store) ListDispatchableTechnicians(ctx context.Context) ([]models.Technician, error) {
	rows, err := s.pool.Query(ctx, technicianQuery(`
		WHERE e.role = 'technician' AND e.status IN ('available', 'on_job')
	`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTechnicians(rows)
}

func (s *Store) ListSchedules(ctx context.Context, technicianIDs []string, dayOfWeek int) (map[string]models.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT employee_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_available
		FROM employee_schedules
		WHERE employee_id = ANY($1) AND day_of_week = $2
	`, technicianIDs, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]models.ScheduleEntry)
	for rows.Next() {
		var entry models.ScheduleEntry
		if err := rows.Scan(&entry.TechnicianID, &entry.DayOfWeek, &entry.StartTime, &entry.EndTime, &entry.IsAvailable); err != nil {
			return nil, err
		}
		entries[entry.TechnicianID] = entry
	}
	return entries, rows.Err()
}

func (s *Store) ListTimeOff(ctx context.Context, technicianIDs []string, date time.Time) (map[string][]models.TimeOffRange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, employee_id, start_date, end_date, COALESCE(reason, '')
		FROM employee_time_off
		WHERE employee_id = ANY($1)
			AND status = 'approved'
			AND start_date <= $2::date
			AND end_date >= $2::date
	`, technicianIDs, date.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranges := make(map[string][]models.TimeOffRange)
	for rows.Next() {
		var timeOff models.TimeOffRange
		if err := rows.Scan(&timeOff.ID, &timeOff.TechnicianID, &timeOff.StartDate, &timeOff.EndDate, &timeOff.Reason); err != nil {
			return nil, err
		}
		ranges[timeOff.TechnicianID] = append(ranges[timeOff.TechnicianID], timeOff)
	}
	return ranges, rows.Err()
}

// ListDispatcherIDs returns the recipients of dispatcher-facing aggregate
// notifications.
func (s *Store) ListDispatcherIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM employees WHERE role IN ('admin', 'manager', 'superadmin')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
