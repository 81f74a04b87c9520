package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind labels what a notification is about.
type NotificationKind string

const (
	NotifyMessage       NotificationKind = "message"
	NotifyBroadcast     NotificationKind = "broadcast"
	NotifyAssignment    NotificationKind = "assignment"
	NotifyHierarchyMove NotificationKind = "hierarchy_move"
	NotifyProjectStatus NotificationKind = "project_status"
)

// Notification is one delivered message. Broadcasts produce one row per
// recipient so read state stays per-user.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	SenderID    uuid.UUID        `json:"sender_id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Body        string           `json:"body,omitempty"`
	ProjectID   *uuid.UUID       `json:"project_id,omitempty"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
