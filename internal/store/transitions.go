package store

import "github.com/DaveCybr/field-service-hub-sub004/internal/models"

var transitionMap = map[string][]models.ServiceStatus{
	"assign_lead": {models.ServiceStatusPending},
	"check_in":    {models.ServiceStatusAssigned},
	"check_out":   {models.ServiceStatusInProgress},
	"cancel": {
		models.ServiceStatusPending,
		models.ServiceStatusAssigned,
		models.ServiceStatusInProgress,
	},
}

// ValidTransition reports whether action may be applied to a service in the
// given status. Lead assignment onto an already-assigned service is not a
// transition error: the ledger rejects it as a lead conflict instead.
func ValidTransition(action string, from models.ServiceStatus) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
