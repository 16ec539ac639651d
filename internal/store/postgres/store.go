// Package postgres implements the dispatch store on PostgreSQL with pgx.
// Ledger invariants (single active lead, no duplicate technician per
// service) are enforced by partial unique indexes; losers of concurrent
// writes surface the conflict as sentinel errors, never a silent overwrite.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DaveCybr/field-service-hub-sub004/internal/geo"
)

const (
	uniqActiveAssignment = "uniq_active_assignment"
	uniqServiceLead      = "uniq_service_lead"

	pgUniqueViolation = "23505"
)

type Store struct {
	pool            *pgxpool.Pool
	geofenceRadiusM float64
}

type Options struct {
	// GeofenceRadiusM overrides the check-in/out acceptance radius.
	// <= 0 uses geo.DefaultRadiusM.
	GeofenceRadiusM float64
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	radius := options.GeofenceRadiusM
	if radius <= 0 {
		radius = geo.DefaultRadiusM
	}
	return &Store{pool: pool, geofenceRadiusM: radius}
}

func constraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}

// tx helper: rollback on error, commit otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullFloatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

func nullBoolPtr(value sql.NullBool) *bool {
	if !value.Valid {
		return nil
	}
	v := value.Bool
	return &v
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
