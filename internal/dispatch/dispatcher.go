// Package dispatch implements the batch auto-dispatch algorithm: match
// pending services to technicians by required skill, priority, and arrival
// order, and write lead assignments through the ledger.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
	"github.com/DaveCybr/field-service-hub-sub004/internal/notify"
	"github.com/DaveCybr/field-service-hub-sub004/internal/skills"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store"
)

const defaultMaxJobsPerRun = 3

// Store is the slice of the dispatch store the batch needs.
type Store interface {
	ListPendingServices(ctx context.Context) ([]models.Service, error)
	ListDispatchableTechnicians(ctx context.Context) ([]models.Technician, error)
	AssignTechnician(ctx context.Context, input store.AssignInput) (models.Assignment, error)
	InsertNotification(ctx context.Context, notification models.Notification) error
	ListDispatcherIDs(ctx context.Context) ([]string, error)
}

type Options struct {
	// MaxJobsPerRun caps how many services a single technician can pick up
	// in one batch run. Technicians stay in the candidate pool after a
	// match, so without a cap one run could queue unbounded work on one
	// person. <= 0 uses the default of 3.
	MaxJobsPerRun int
	// Rand overrides the selection source; nil seeds from the clock.
	Rand *rand.Rand
	// ApprovalMode additionally notifies dispatcher roles after each run
	// that assignments await their sign-off. The sign-off itself is a
	// dispatcher-UI concern; the engine assigns either way.
	ApprovalMode bool
}

type Dispatcher struct {
	store         Store
	matcher       skills.Matcher
	log           zerolog.Logger
	rng           *rand.Rand
	maxJobsPerRun int
	approvalMode  bool
}

type ServiceError struct {
	ServiceID string `json:"service_id"`
	Message   string `json:"message"`
}

// Summary reports one batch run. Failed services are left pending and picked
// up by the next run; the batch never aborts because of one service.
type Summary struct {
	Trigger  string         `json:"trigger"`
	Scanned  int            `json:"scanned"`
	Assigned int            `json:"assigned"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Errors   []ServiceError `json:"errors,omitempty"`
}

func New(st Store, matcher skills.Matcher, log zerolog.Logger, options Options) *Dispatcher {
	maxJobs := options.MaxJobsPerRun
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobsPerRun
	}
	rng := options.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dispatcher{
		store:         st,
		matcher:       matcher,
		log:           log,
		rng:           rng,
		maxJobsPerRun: maxJobs,
		approvalMode:  options.ApprovalMode,
	}
}

// Run executes one auto-dispatch batch. Pending services are re-queried from
// the store each run, so a crash mid-batch resumes cleanly: services already
// assigned no longer qualify as pending-without-lead. Selection among
// matching technicians is uniformly random.
func (d *Dispatcher) Run(ctx context.Context, trigger string) (Summary, error) {
	summary := Summary{Trigger: trigger}

	pending, err := d.store.ListPendingServices(ctx)
	if err != nil {
		return summary, fmt.Errorf("list pending services: %w", err)
	}
	summary.Scanned = len(pending)
	if len(pending) == 0 {
		return summary, nil
	}

	technicians, err := d.store.ListDispatchableTechnicians(ctx)
	if err != nil {
		return summary, fmt.Errorf("list technicians: %w", err)
	}

	normalized := make(map[string][]string, len(technicians))
	for _, technician := range technicians {
		normalized[technician.ID] = skills.NormalizeAll(technician.Skills)
	}
	assignedThisRun := make(map[string]int)

	for _, service := range pending {
		candidates := d.candidatesFor(service, technicians, normalized, assignedThisRun)
		if len(candidates) == 0 {
			summary.Skipped++
			d.log.Debug().Str("service_id", service.ID).Msg("no matching technician, left pending")
			continue
		}

		chosen := candidates[d.rng.Intn(len(candidates))]
		assignment, err := d.store.AssignTechnician(ctx, store.AssignInput{
			ServiceID:    service.ID,
			TechnicianID: chosen.ID,
			Role:         models.RoleLead,
			Notes:        "auto-dispatched",
		})
		if err != nil {
			if errors.Is(err, store.ErrLeadAlreadyAssigned) || errors.Is(err, store.ErrAlreadyAssigned) {
				// A concurrent run or a dispatcher beat us to it.
				summary.Skipped++
				continue
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, ServiceError{ServiceID: service.ID, Message: err.Error()})
			d.log.Error().Err(err).Str("service_id", service.ID).Msg("auto-dispatch assignment failed")
			continue
		}

		summary.Assigned++
		assignedThisRun[chosen.ID]++
		servicesAssigned.Inc()
		d.log.Info().
			Str("service_id", service.ID).
			Str("technician_id", chosen.ID).
			Str("assignment_id", assignment.ID).
			Str("priority", string(service.Priority)).
			Msg("service auto-dispatched")

		if err := d.store.InsertNotification(ctx, notify.Assigned(service, assignment)); err != nil {
			d.log.Error().Err(err).Str("service_id", service.ID).Msg("assignment notification failed")
		}
	}

	if d.approvalMode && summary.Assigned > 0 {
		d.notifyDispatchers(ctx, summary.Assigned)
	}

	runsTotal.Inc()
	servicesScanned.Add(float64(summary.Scanned))
	servicesSkipped.Add(float64(summary.Skipped))
	servicesFailed.Add(float64(summary.Failed))

	return summary, nil
}

func (d *Dispatcher) candidatesFor(service models.Service, technicians []models.Technician, normalized map[string][]string, assignedThisRun map[string]int) []models.Technician {
	required := skills.NormalizeAll(service.RequiredSkills)
	var candidates []models.Technician
	for _, technician := range technicians {
		if assignedThisRun[technician.ID] >= d.maxJobsPerRun {
			continue
		}
		if !d.matcher.Matches(normalized[technician.ID], required) {
			continue
		}
		candidates = append(candidates, technician)
	}
	return candidates
}

func (d *Dispatcher) notifyDispatchers(ctx context.Context, assigned int) {
	dispatcherIDs, err := d.store.ListDispatcherIDs(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("dispatcher recipient lookup failed")
		return
	}
	for _, recipientID := range dispatcherIDs {
		if err := d.store.InsertNotification(ctx, notify.RequiresApproval(recipientID, assigned)); err != nil {
			d.log.Error().Err(err).Str("recipient_id", recipientID).Msg("approval notification failed")
		}
	}
}
