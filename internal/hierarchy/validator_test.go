package hierarchy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
)

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func entry(id uuid.UUID, parentID *uuid.UUID, role models.Role, level int) *models.HierarchyEntry {
	return &models.HierarchyEntry{
		HierarchyNode: models.HierarchyNode{UserID: id, ParentID: parentID, Level: level},
		Role:          role,
	}
}

func TestValidateMove_AllowList(t *testing.T) {
	allowed := map[models.Role]models.Role{
		models.RoleAgent:       models.RoleSuperAgent,
		models.RoleSuperWorker: models.RoleAgent,
		models.RoleWorker:      models.RoleSuperWorker,
		models.RoleClient:      models.RoleAgent,
	}
	for _, role := range models.AllRoles {
		for _, parentRole := range models.AllRoles {
			check := ValidateMove(role, parentRole, 3, 1)
			if allowed[role] == parentRole {
				require.True(t, check.Valid, "%s under %s should be movable", role, parentRole)
				require.Equal(t, 2, check.NewLevel)
			} else {
				require.False(t, check.Valid, "%s under %s should be rejected", role, parentRole)
				require.Equal(t, CodeHierarchyViolation, check.Code)
			}
		}
	}
}

func TestValidateMove_RootNeverMovable(t *testing.T) {
	for _, parentRole := range models.AllRoles {
		check := ValidateMove(models.RoleSuperAgent, parentRole, 1, 1)
		require.False(t, check.Valid)
		require.Equal(t, CodeHierarchyViolation, check.Code)
	}
}

func TestValidateMove_LevelFollowsParent(t *testing.T) {
	check := ValidateMove(models.RoleWorker, models.RoleSuperWorker, 4, 3)
	require.True(t, check.Valid)
	require.Equal(t, 4, check.NewLevel)

	check = ValidateMove(models.RoleWorker, models.RoleSuperWorker, 4, 4)
	require.True(t, check.Valid)
	require.Equal(t, 5, check.NewLevel)
}

func TestValidateMove_RejectsBeyondMaxDepth(t *testing.T) {
	check := ValidateMove(models.RoleWorker, models.RoleSuperWorker, 4, models.MaxHierarchyLevel)
	require.False(t, check.Valid)
	require.Equal(t, CodeHierarchyViolation, check.Code)
	require.Contains(t, check.Reason, "level 6")
}

func TestValidateMove_ReasonNamesAllowedParent(t *testing.T) {
	check := ValidateMove(models.RoleWorker, models.RoleAgent, 4, 2)
	require.False(t, check.Valid)
	require.Contains(t, check.Reason, string(models.RoleSuperWorker))
}

func TestPlanMove_NoChange(t *testing.T) {
	parentID := uuid.New()
	parent := entry(parentID, nil, models.RoleSuperAgent, 1)
	moved := entry(uuid.New(), idPtr(parentID), models.RoleAgent, 2)

	check := planMove(moved, parent, []uuid.UUID{parentID}, 2)
	require.False(t, check.Valid)
	require.Equal(t, CodeNoChange, check.Code)
}

func TestPlanMove_MoveUnderOwnDescendantRejected(t *testing.T) {
	// Role and depth checks alone would approve a super_worker under an
	// agent; the ancestor walk must still reject when that agent sits in
	// the moved user's subtree.
	movedID := uuid.New()
	moved := entry(movedID, idPtr(uuid.New()), models.RoleSuperWorker, 3)
	parentID := uuid.New()
	parent := entry(parentID, idPtr(movedID), models.RoleAgent, 3)

	check := planMove(moved, parent, []uuid.UUID{parentID, movedID}, 4)
	require.False(t, check.Valid)
	require.Equal(t, CodeHierarchyViolation, check.Code)
	require.Contains(t, check.Reason, "cycle")
}

func TestPlanMove_SubtreeDepthGuard(t *testing.T) {
	moved := entry(uuid.New(), idPtr(uuid.New()), models.RoleSuperWorker, 2)
	parent := entry(uuid.New(), idPtr(uuid.New()), models.RoleAgent, 3)

	// Subtree spans levels 2–4; shifting down by two pushes its deepest
	// member to 6.
	check := planMove(moved, parent, []uuid.UUID{parent.UserID}, 4)
	require.False(t, check.Valid)
	require.Equal(t, CodeHierarchyViolation, check.Code)
	require.Contains(t, check.Reason, "subtree")

	shallower := entry(uuid.New(), idPtr(uuid.New()), models.RoleAgent, 2)
	check = planMove(moved, shallower, []uuid.UUID{shallower.UserID}, 4)
	require.True(t, check.Valid)
	require.Equal(t, 3, check.NewLevel)
}

func TestPlanMove_ValidMoveBetweenTrees(t *testing.T) {
	oldParent := uuid.New()
	moved := entry(uuid.New(), idPtr(oldParent), models.RoleAgent, 2)
	parent := entry(uuid.New(), nil, models.RoleSuperAgent, 1)

	check := planMove(moved, parent, []uuid.UUID{parent.UserID}, 4)
	require.True(t, check.Valid)
	require.Equal(t, 2, check.NewLevel)
	require.Empty(t, check.Code)
}
