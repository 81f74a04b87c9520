package models

import (
	"time"

	"github.com/google/uuid"
)

// CodeType identifies what kind of recruitment a reference code performs.
type CodeType string

const (
	CodeAgentRecruitment  CodeType = "agent_recruitment"
	CodeClientRecruitment CodeType = "client_recruitment"
	CodeWorkerRecruitment CodeType = "worker_recruitment"
)

// Valid reports whether the code type is one of the known types.
func (t CodeType) Valid() bool {
	switch t {
	case CodeAgentRecruitment, CodeClientRecruitment, CodeWorkerRecruitment:
		return true
	}
	return false
}

// ReferenceCode is a recruitment code issued by a hierarchy member. A code
// stays usable until it expires or its owner deactivates it; registration
// consumes a code without spending it. Codes are deactivated, never deleted.
type ReferenceCode struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	CodeType  CodeType   `json:"code_type"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
