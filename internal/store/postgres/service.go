package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DaveCybr/field-service-hub-sub004/internal/geo"
	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

const serviceColumns = `id, invoice_id, title, description, required_skills, priority, status,
	scheduled_start, scheduled_end, latitude, longitude, assigned_technician_id,
	checkin_at, checkout_at, checkin_gps_valid, checkout_gps_valid, created_at, updated_at`

func scanService(row pgx.Row) (models.Service, error) {
	var service models.Service
	var invoiceIDNull, descriptionNull, technicianIDNull sql.NullString
	var scheduledStartNull, scheduledEndNull, checkinAtNull, checkoutAtNull sql.NullTime
	var latNull, lonNull sql.NullFloat64
	var checkinValidNull, checkoutValidNull sql.NullBool
	err := row.Scan(
		&service.ID,
		&invoiceIDNull,
		&service.Title,
		&descriptionNull,
		&service.RequiredSkills,
		&service.Priority,
		&service.Status,
		&scheduledStartNull,
		&scheduledEndNull,
		&latNull,
		&lonNull,
		&technicianIDNull,
		&checkinAtNull,
		&checkoutAtNull,
		&checkinValidNull,
		&checkoutValidNull,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		return models.Service{}, err
	}
	service.InvoiceID = nullStringPtr(invoiceIDNull)
	if descriptionNull.Valid {
		service.Description = descriptionNull.String
	}
	service.ScheduledStart = nullTimePtr(scheduledStartNull)
	service.ScheduledEnd = nullTimePtr(scheduledEndNull)
	service.Latitude = nullFloatPtr(latNull)
	service.Longitude = nullFloatPtr(lonNull)
	service.AssignedTechnicianID = nullStringPtr(technicianIDNull)
	service.CheckinAt = nullTimePtr(checkinAtNull)
	service.CheckoutAt = nullTimePtr(checkoutAtNull)
	service.CheckinGPSValid = nullBoolPtr(checkinValidNull)
	service.CheckoutGPSValid = nullBoolPtr(checkoutValidNull)
	return service, nil
}

func (s *Store) GetService(ctx context.Context, serviceID string) (models.Service, bool, error) {
	service, err := scanService(s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
	`, serviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, false, nil
		}
		return models.Service{}, false, err
	}
	return service, true, nil
}

// CheckIn records an on-site arrival. The geofence result is advisory: a
// missing or out-of-range fix is recorded as invalid but never blocks the
// transition. Repeated check-ins are rejected without touching the original
// timestamp.
func (s *Store) CheckIn(ctx context.Context, input store.CheckInput) (store.CheckResult, error) {
	var result store.CheckResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		service, err := s.lockService(ctx, tx, input.ServiceID)
		if err != nil {
			return err
		}
		if err := s.ensureActiveAssignment(ctx, tx, input.ServiceID, input.TechnicianID); err != nil {
			return err
		}
		if service.CheckinAt != nil {
			return store.ErrAlreadyCheckedIn
		}
		if !store.ValidTransition("check_in", service.Status) {
			return store.ErrInvalidState
		}

		at := input.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		distance, valid := s.verify(service, input)

		row := tx.QueryRow(ctx, `
			UPDATE services
			SET status = 'in_progress',
				checkin_at = $2,
				checkin_gps_valid = $3,
				checkin_latitude = $4,
				checkin_longitude = $5,
				updated_at = now()
			WHERE id = $1
			RETURNING `+serviceColumns+`
		`, input.ServiceID, at, valid, ptrArg(input.Latitude), ptrArg(input.Longitude))
		result.Service, err = scanService(row)
		if err != nil {
			return err
		}

		if _, err = tx.Exec(ctx, `
			UPDATE service_assignments
			SET status = 'in_progress', updated_at = now()
			WHERE service_id = $1 AND status = 'assigned'
		`, input.ServiceID); err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, `
			UPDATE employees SET status = 'on_job', updated_at = now() WHERE id = $1
		`, input.TechnicianID); err != nil {
			return err
		}

		result.DistanceM = distance
		result.GPSValid = valid
		return insertGeofenceEvent(ctx, tx, input, models.GeofenceEventCheckIn, distance, valid, at)
	})
	if err != nil {
		return store.CheckResult{}, err
	}
	return result, nil
}

// CheckOut completes a service. Requires a prior check-in and no prior
// check-out; same advisory geofence policy as CheckIn.
func (s *Store) CheckOut(ctx context.Context, input store.CheckInput) (store.CheckResult, error) {
	var result store.CheckResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		service, err := s.lockService(ctx, tx, input.ServiceID)
		if err != nil {
			return err
		}
		if err := s.ensureActiveAssignment(ctx, tx, input.ServiceID, input.TechnicianID); err != nil {
			return err
		}
		if service.CheckinAt == nil {
			return store.ErrNoCheckIn
		}
		if service.CheckoutAt != nil {
			return store.ErrAlreadyCheckedOut
		}
		if !store.ValidTransition("check_out", service.Status) {
			return store.ErrInvalidState
		}

		at := input.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		distance, valid := s.verify(service, input)

		row := tx.QueryRow(ctx, `
			UPDATE services
			SET status = 'completed',
				checkout_at = $2,
				checkout_gps_valid = $3,
				checkout_latitude = $4,
				checkout_longitude = $5,
				updated_at = now()
			WHERE id = $1
			RETURNING `+serviceColumns+`
		`, input.ServiceID, at, valid, ptrArg(input.Latitude), ptrArg(input.Longitude))
		result.Service, err = scanService(row)
		if err != nil {
			return err
		}

		if _, err = tx.Exec(ctx, `
			UPDATE service_assignments
			SET status = 'completed', updated_at = now()
			WHERE service_id = $1 AND status IN ('assigned', 'in_progress')
		`, input.ServiceID); err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, `
			UPDATE employees
			SET status = 'available', total_jobs_completed = total_jobs_completed + 1, updated_at = now()
			WHERE id = $1
		`, input.TechnicianID); err != nil {
			return err
		}

		result.DistanceM = distance
		result.GPSValid = valid
		return insertGeofenceEvent(ctx, tx, input, models.GeofenceEventCheckOut, distance, valid, at)
	})
	if err != nil {
		return store.CheckResult{}, err
	}
	return result, nil
}

func (s *Store) lockService(ctx context.Context, tx pgx.Tx, serviceID string) (models.Service, error) {
	service, err := scanService(tx.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
		FOR UPDATE
	`, serviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

func (s *Store) ensureActiveAssignment(ctx context.Context, tx pgx.Tx, serviceID, technicianID string) error {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM service_assignments
			WHERE service_id = $1 AND technician_id = $2 AND status <> 'removed'
		)
	`, serviceID, technicianID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrTechnicianNotAssigned
	}
	return nil
}

// verify computes the advisory geofence result. No registered service
// coordinate or no reported fix means invalid with no distance.
func (s *Store) verify(service models.Service, input store.CheckInput) (*float64, bool) {
	if input.Latitude == nil || input.Longitude == nil || service.Latitude == nil || service.Longitude == nil {
		return nil, false
	}
	result := geo.CheckGeofence(*input.Latitude, *input.Longitude, *service.Latitude, *service.Longitude, s.geofenceRadiusM)
	return &result.DistanceM, result.Valid
}

func ptrArg(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
