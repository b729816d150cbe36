package notifications

import (
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindUserRegistered    Kind = "user_registered"
	KindAlertCreated      Kind = "alert_created"
	KindAlertResolved     Kind = "alert_resolved"
	KindDeliveryAssigned  Kind = "delivery_assigned"
	KindDeliveryCompleted Kind = "delivery_completed"
	KindStockLow          Kind = "stock_low"
	KindSystemAlert       Kind = "system_alert"
)

// Kinds lists every kind.
var Kinds = []Kind{
	KindUserRegistered,
	KindAlertCreated,
	KindAlertResolved,
	KindDeliveryAssigned,
	KindDeliveryCompleted,
	KindStockLow,
	KindSystemAlert,
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities: low < medium < high. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Notification is the canonical record shown to dashboard users.
type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	SubjectID   string    `json:"subject_id,omitempty"`
	SubjectName string    `json:"subject_name,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
	Priority    Priority  `json:"priority"`
	ActionPath  string    `json:"action_path,omitempty"`
}
