package store

import (
	"testing"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   models.ServiceStatus
		valid  bool
	}{
		{"assign_lead", models.ServiceStatusPending, true},
		{"assign_lead", models.ServiceStatusAssigned, false},
		{"assign_lead", models.ServiceStatusCompleted, false},
		{"check_in", models.ServiceStatusAssigned, true},
		{"check_in", models.ServiceStatusPending, false},
		{"check_in", models.ServiceStatusInProgress, false},
		{"check_out", models.ServiceStatusInProgress, true},
		{"check_out", models.ServiceStatusAssigned, false},
		{"check_out", models.ServiceStatusCompleted, false},
		{"cancel", models.ServiceStatusPending, true},
		{"cancel", models.ServiceStatusAssigned, true},
		{"cancel", models.ServiceStatusInProgress, true},
		{"cancel", models.ServiceStatusCompleted, false},
		{"cancel", models.ServiceStatusCancelled, false},
		{"unknown", models.ServiceStatusPending, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}
