// Package availability answers "is technician T available on date D" from
// approved time-off ranges and weekly working-hour schedules.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
)

const (
	DefaultStart = "08:00"
	DefaultEnd   = "17:00"
)

// Directory is the read-only slice of the store the resolver needs.
type Directory interface {
	ListSchedules(ctx context.Context, technicianIDs []string, dayOfWeek int) (map[string]models.ScheduleEntry, error)
	ListTimeOff(ctx context.Context, technicianIDs []string, date time.Time) (map[string][]models.TimeOffRange, error)
}

type Result struct {
	Available    bool   `json:"available"`
	Reason       string `json:"reason,omitempty"`
	WorkingHours string `json:"working_hours,omitempty"`
}

type Resolver struct {
	directory Directory
	log       zerolog.Logger
}

func NewResolver(directory Directory, log zerolog.Logger) *Resolver {
	return &Resolver{directory: directory, log: log}
}

// Check resolves a single technician. Resolution order: approved time-off
// covering the date wins, then the weekly schedule row for the weekday, then
// the default-hours fallback when no row exists.
func (r *Resolver) Check(ctx context.Context, technicianID string, date time.Time) (Result, error) {
	results, err := r.CheckAll(ctx, []string{technicianID}, date)
	if err != nil {
		return Result{}, err
	}
	return results[technicianID], nil
}

// CheckAll resolves a batch of technicians with the same per-technician
// outcomes as calling Check in a loop. Lookups fail open: on a storage error
// every technician is reported available, so an availability fault can never
// silently exclude technicians from dispatch.
func (r *Resolver) CheckAll(ctx context.Context, technicianIDs []string, date time.Time) (map[string]Result, error) {
	results := make(map[string]Result, len(technicianIDs))

	timeOff, err := r.directory.ListTimeOff(ctx, technicianIDs, date)
	if err != nil {
		r.log.Error().Err(err).Msg("time-off lookup failed, failing open")
		return r.failOpen(technicianIDs), nil
	}

	schedules, err := r.directory.ListSchedules(ctx, technicianIDs, int(date.Weekday()))
	if err != nil {
		r.log.Error().Err(err).Msg("schedule lookup failed, failing open")
		return r.failOpen(technicianIDs), nil
	}

	for _, id := range technicianIDs {
		results[id] = resolve(timeOff[id], schedules, id, date)
	}
	return results, nil
}

func resolve(ranges []models.TimeOffRange, schedules map[string]models.ScheduleEntry, technicianID string, date time.Time) Result {
	for _, timeOff := range ranges {
		if timeOff.Covers(date) {
			reason := "on approved leave"
			if timeOff.Reason != "" {
				reason = fmt.Sprintf("on approved leave: %s", timeOff.Reason)
			}
			return Result{Available: false, Reason: reason}
		}
	}

	entry, ok := schedules[technicianID]
	if !ok {
		return Result{
			Available:    true,
			WorkingHours: fmt.Sprintf("%s - %s", DefaultStart, DefaultEnd),
		}
	}
	if !entry.IsAvailable {
		return Result{Available: false, Reason: "not working this day"}
	}
	return Result{
		Available:    true,
		WorkingHours: fmt.Sprintf("%s - %s", entry.StartTime, entry.EndTime),
	}
}

func (r *Resolver) failOpen(technicianIDs []string) map[string]Result {
	results := make(map[string]Result, len(technicianIDs))
	for _, id := range technicianIDs {
		results[id] = Result{Available: true}
	}
	return results
}
