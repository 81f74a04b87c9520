package assignments

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
)

func attempt(assigner, assignee models.Role, assignerLevel, assigneeLevel int, subordinate bool) AssignmentCheck {
	return ValidateAssignment(AssignmentInput{
		AssignerRole:   assigner,
		AssigneeRole:   assignee,
		AssignmentType: models.AssignWorker,
		AssignerLevel:  assignerLevel,
		AssigneeLevel:  assigneeLevel,
		Subordinate:    subordinate,
	})
}

func TestValidateAssignment_WorkerAndClientNeverAssign(t *testing.T) {
	for _, assigner := range []models.Role{models.RoleWorker, models.RoleClient} {
		for _, assignee := range models.AllRoles {
			check := attempt(assigner, assignee, 4, 3, true)
			require.False(t, check.Valid, "%s assigning %s should be rejected", assigner, assignee)
			require.Contains(t, check.Message, "may not assign anyone")
		}
	}
}

func TestValidateAssignment_SuperAgentUnrestricted(t *testing.T) {
	// The root role assigns anyone, subordinate or not.
	for _, assignee := range models.AllRoles {
		check := attempt(models.RoleSuperAgent, assignee, 1, 4, false)
		require.True(t, check.Valid, "super_agent assigning %s should pass", assignee)
		require.Empty(t, check.Message)
	}
}

func TestValidateAssignment_AgentAssigneeRoles(t *testing.T) {
	allowed := map[models.Role]bool{
		models.RoleClient: true,
		models.RoleWorker: true,
	}
	for _, assignee := range models.AllRoles {
		check := attempt(models.RoleAgent, assignee, 2, 3, true)
		if allowed[assignee] {
			require.True(t, check.Valid, "agent assigning %s should pass", assignee)
		} else {
			require.False(t, check.Valid, "agent assigning %s should be rejected", assignee)
			require.Contains(t, check.Message, "may only assign")
			require.Contains(t, check.Message, "client or worker")
		}
	}
}

func TestValidateAssignment_SuperWorkerAssignsOnlyWorkers(t *testing.T) {
	check := attempt(models.RoleSuperWorker, models.RoleWorker, 3, 4, true)
	require.True(t, check.Valid)

	check = attempt(models.RoleSuperWorker, models.RoleClient, 3, 3, true)
	require.False(t, check.Valid)
	require.Contains(t, check.Message, "may only assign a worker")
}

func TestValidateAssignment_SubordinateRequired(t *testing.T) {
	check := attempt(models.RoleAgent, models.RoleWorker, 2, 4, false)
	require.False(t, check.Valid)
	require.Contains(t, check.Message, "not a subordinate")

	check = attempt(models.RoleSuperWorker, models.RoleWorker, 3, 4, false)
	require.False(t, check.Valid)
	require.Contains(t, check.Message, "not a subordinate")
}

func TestValidateAssignment_LevelDiffReported(t *testing.T) {
	check := attempt(models.RoleAgent, models.RoleWorker, 2, 4, true)
	require.True(t, check.Valid)
	require.Equal(t, 2, check.LevelDiff)

	// The diff is reported on rejections too, and keeps its sign when the
	// assignee sits above the assigner.
	check = attempt(models.RoleWorker, models.RoleAgent, 4, 2, true)
	require.False(t, check.Valid)
	require.Equal(t, -2, check.LevelDiff)
}
