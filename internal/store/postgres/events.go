package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

func (s *Store) InsertNotification(ctx context.Context, notification models.Notification) error {
	id := notification.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := notification.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var data interface{}
	if len(notification.Data) > 0 {
		data = []byte(notification.Data)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, type, recipient_id, title, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, notification.Type, notification.RecipientID, notification.Title, notification.Message, data, createdAt)
	return err
}

func insertGeofenceEvent(ctx context.Context, tx pgx.Tx, input store.CheckInput, eventType string, distance *float64, valid bool, at time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO geofence_events (id, service_id, technician_id, event_type, latitude, longitude, distance_m, valid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.NewString(), input.ServiceID, input.TechnicianID, eventType, ptrArg(input.Latitude), ptrArg(input.Longitude), distance, valid, at)
	return err
}

func (s *Store) ListGeofenceEvents(ctx context.Context, serviceID string) ([]models.GeofenceEvent, error) {
	if err := s.ensureServiceExists(ctx, serviceID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, service_id, technician_id, event_type, latitude, longitude, distance_m, valid, created_at
		FROM geofence_events
		WHERE service_id = $1
		ORDER BY created_at ASC
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.GeofenceEvent
	for rows.Next() {
		var event models.GeofenceEvent
		var latNull, lonNull, distanceNull sql.NullFloat64
		if err := rows.Scan(&event.ID, &event.ServiceID, &event.TechnicianID, &event.EventType, &latNull, &lonNull, &distanceNull, &event.Valid, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Latitude = nullFloatPtr(latNull)
		event.Longitude = nullFloatPtr(lonNull)
		event.DistanceM = nullFloatPtr(distanceNull)
		events = append(events, event)
	}
	return events, rows.Err()
}
