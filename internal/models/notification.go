package models

import (
	"encoding/json"
	"time"
)

const (
	NotificationServiceAssigned         = "service_assigned"
	NotificationServiceRequiresApproval = "service_requires_approval"
)

type Notification struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	RecipientID string          `json:"recipient_id"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
