package assignments

import (
	"fmt"
	"strings"

	"github.com/scribeworks/backend/internal/models"
)

// capability describes what one assigner role may do. unrestricted roles
// skip the subordinate and assignee-role checks entirely.
type capability struct {
	unrestricted  bool
	assigneeRoles []models.Role
}

// capabilities is the assigner capability table. Roles without an entry
// (worker, client) may never assign.
var capabilities = map[models.Role]capability{
	models.RoleSuperAgent:  {unrestricted: true},
	models.RoleAgent:       {assigneeRoles: []models.Role{models.RoleClient, models.RoleWorker}},
	models.RoleSuperWorker: {assigneeRoles: []models.Role{models.RoleWorker}},
}

// AssignmentInput carries everything the capability check needs. The
// service fills Subordinate and the levels from the hierarchy store before
// calling; the check itself stays pure.
type AssignmentInput struct {
	AssignerRole   models.Role
	AssigneeRole   models.Role
	AssignmentType models.AssignmentType
	AssignerLevel  int
	AssigneeLevel  int
	Subordinate    bool
}

// AssignmentCheck is the outcome of validating a proposed assignment.
// LevelDiff is assignee level minus assigner level, reported for valid and
// invalid outcomes alike.
type AssignmentCheck struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	LevelDiff int    `json:"hierarchy_level_diff"`
}

// ValidateAssignment runs the role capability table against a proposed
// assignment. The hierarchy lookup behind Subordinate is the caller's job.
func ValidateAssignment(in AssignmentInput) AssignmentCheck {
	diff := in.AssigneeLevel - in.AssignerLevel

	rule, ok := capabilities[in.AssignerRole]
	if !ok {
		return AssignmentCheck{
			Valid:     false,
			Message:   fmt.Sprintf("a %s may not assign anyone", in.AssignerRole),
			LevelDiff: diff,
		}
	}
	if rule.unrestricted {
		return AssignmentCheck{Valid: true, LevelDiff: diff}
	}
	if !in.Subordinate {
		return AssignmentCheck{
			Valid:     false,
			Message:   "assignee is not a subordinate of the assigner",
			LevelDiff: diff,
		}
	}
	for _, r := range rule.assigneeRoles {
		if r == in.AssigneeRole {
			return AssignmentCheck{Valid: true, LevelDiff: diff}
		}
	}
	return AssignmentCheck{
		Valid:     false,
		Message:   fmt.Sprintf("a %s may only assign a %s", in.AssignerRole, roleList(rule.assigneeRoles)),
		LevelDiff: diff,
	}
}

func roleList(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
