package hierarchy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/models"
)

// Outcome codes carried on MoveCheck when a move is not applied.
const (
	CodeHierarchyViolation = "hierarchy_violation"
	CodeNoChange           = "no_change"
)

// allowedParents maps each movable role to the parent roles it may report
// to. Roles absent from the table (super_agent) cannot be moved at all.
var allowedParents = map[models.Role][]models.Role{
	models.RoleAgent:       {models.RoleSuperAgent},
	models.RoleSuperWorker: {models.RoleAgent},
	models.RoleWorker:      {models.RoleSuperWorker},
	models.RoleClient:      {models.RoleAgent},
}

// MoveCheck is the outcome of validating a proposed re-parenting.
type MoveCheck struct {
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Reason   string `json:"reason,omitempty"`
	NewLevel int    `json:"new_level,omitempty"`
}

func invalidMove(reason string) MoveCheck {
	return MoveCheck{Valid: false, Code: CodeHierarchyViolation, Reason: reason}
}

// ValidateMove decides whether a user of userRole may be re-parented under
// a user of newParentRole, and computes the level the moved user would land
// on. It checks role legality and depth only: cycle detection and no-change
// detection need the actual tree and are layered on by the move operation.
func ValidateMove(userRole, newParentRole models.Role, currentLevel, newParentLevel int) MoveCheck {
	if userRole == models.RoleSuperAgent {
		return invalidMove("super agents root their own tree and cannot be moved")
	}
	parents, ok := allowedParents[userRole]
	if !ok {
		return invalidMove(fmt.Sprintf("role %q cannot be moved", userRole))
	}
	permitted := false
	for _, p := range parents {
		if p == newParentRole {
			permitted = true
			break
		}
	}
	if !permitted {
		return invalidMove(fmt.Sprintf("a %s may only report to %s", userRole, roleList(parents)))
	}
	newLevel := newParentLevel + 1
	if newLevel > models.MaxHierarchyLevel {
		return invalidMove(fmt.Sprintf("move would place the user at level %d, beyond the maximum of %d", newLevel, models.MaxHierarchyLevel))
	}
	return MoveCheck{Valid: true, NewLevel: newLevel}
}

// planMove runs the full pre-write decision for a move, combining the pure
// role/depth check with the structural checks that need rows read inside
// the move transaction: the new parent's ancestor chain (cycle detection)
// and the deepest level in the moved user's subtree (depth after shift).
func planMove(moved, parent *models.HierarchyEntry, parentAncestors []uuid.UUID, deepestLevel int) MoveCheck {
	if moved.ParentID != nil && *moved.ParentID == parent.UserID {
		return MoveCheck{Valid: false, Code: CodeNoChange, Reason: "user already reports to this parent"}
	}
	check := ValidateMove(moved.Role, parent.Role, moved.Level, parent.Level)
	if !check.Valid {
		return check
	}
	for _, id := range parentAncestors {
		if id == moved.UserID {
			return invalidMove("the proposed parent sits inside the user's own subtree; the move would create a cycle")
		}
	}
	delta := check.NewLevel - moved.Level
	if deepestLevel+delta > models.MaxHierarchyLevel {
		return invalidMove(fmt.Sprintf("move would push part of the user's subtree to level %d, beyond the maximum of %d", deepestLevel+delta, models.MaxHierarchyLevel))
	}
	return check
}

func roleList(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
