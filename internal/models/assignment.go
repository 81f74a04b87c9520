package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentType names the project role-slot an assignment fills.
type AssignmentType string

const (
	AssignAgent     AssignmentType = "agent"
	AssignSubAgent  AssignmentType = "sub_agent"
	AssignWorker    AssignmentType = "worker"
	AssignSubWorker AssignmentType = "sub_worker"
)

// Valid reports whether the assignment type is one of the known slots.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignAgent, AssignSubAgent, AssignWorker, AssignSubWorker:
		return true
	}
	return false
}

// AssignmentRecord is one row of the append-only assignment history. At
// most one record per (project, type) is open, i.e. has a nil
// EffectiveUntil; a new assignment closes the open row first.
type AssignmentRecord struct {
	ID             uuid.UUID      `json:"id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	AssigneeID     uuid.UUID      `json:"assignee_id"`
	AssignerID     uuid.UUID      `json:"assigner_id"`
	AssignmentType AssignmentType `json:"assignment_type"`
	IsValid        bool           `json:"is_valid"`
	LevelDiff      int            `json:"level_diff"`
	EffectiveFrom  time.Time      `json:"effective_from"`
	EffectiveUntil *time.Time     `json:"effective_until,omitempty"`
}
