// Package notify builds the notification records the engine hands to the
// external delivery pipeline.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/DaveCybr/field-service-hub-sub004/internal/models"
)

// Assigned is sent to a technician when they become lead on a service.
func Assigned(service models.Service, assignment models.Assignment) models.Notification {
	data, _ := json.Marshal(map[string]string{
		"service_id":    service.ID,
		"assignment_id": assignment.ID,
		"priority":      string(service.Priority),
	})
	return models.Notification{
		Type:        models.NotificationServiceAssigned,
		RecipientID: assignment.TechnicianID,
		Title:       "New service assigned",
		Message:     fmt.Sprintf("You have been assigned as %s on %q", assignment.Role, service.Title),
		Data:        data,
	}
}

// RequiresApproval is the aggregate record sent to each dispatcher when a
// deployment runs auto-dispatch in sign-off mode.
func RequiresApproval(recipientID string, assignedCount int) models.Notification {
	data, _ := json.Marshal(map[string]int{"assigned_count": assignedCount})
	return models.Notification{
		Type:        models.NotificationServiceRequiresApproval,
		RecipientID: recipientID,
		Title:       "Auto-dispatch awaiting approval",
		Message:     fmt.Sprintf("%d service assignments are awaiting dispatcher approval", assignedCount),
		Data:        data,
	}
}
