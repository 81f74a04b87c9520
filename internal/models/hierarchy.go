package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxHierarchyLevel is the deepest level a node may occupy. The root
// super_agent sits at level 1.
const MaxHierarchyLevel = 5

// HierarchyNode is a user's edge in the recruitment tree. Every user has
// exactly one row; ParentID is nil only for the root super_agent.
// SuperAgentID identifies the root of the tree the user belongs to.
type HierarchyNode struct {
	UserID       uuid.UUID  `json:"user_id"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Level        int        `json:"hierarchy_level"`
	SuperAgentID uuid.UUID  `json:"super_agent_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HierarchyEntry is a node joined with the user's profile, as returned by
// tree and listing queries.
type HierarchyEntry struct {
	HierarchyNode
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// TreeNode is one element of a nested subtree view.
type TreeNode struct {
	HierarchyEntry
	Children []*TreeNode `json:"children"`
}

// HierarchyChange is one row of the append-only move audit log.
type HierarchyChange struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	OldParentID *uuid.UUID `json:"old_parent_id,omitempty"`
	NewParentID uuid.UUID  `json:"new_parent_id"`
	OldLevel    int        `json:"old_level"`
	NewLevel    int        `json:"new_level"`
	ChangedBy   uuid.UUID  `json:"changed_by"`
	Reason      *string    `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
