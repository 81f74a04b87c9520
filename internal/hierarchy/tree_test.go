package hierarchy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
)

func TestBuildTree_NestsByParent(t *testing.T) {
	rootID := uuid.New()
	agentA := uuid.New()
	agentB := uuid.New()
	superWorker := uuid.New()
	worker := uuid.New()

	entries := []models.HierarchyEntry{
		*entry(rootID, nil, models.RoleSuperAgent, 1),
		*entry(agentA, idPtr(rootID), models.RoleAgent, 2),
		*entry(agentB, idPtr(rootID), models.RoleAgent, 2),
		*entry(superWorker, idPtr(agentA), models.RoleSuperWorker, 3),
		*entry(worker, idPtr(superWorker), models.RoleWorker, 4),
	}

	tree := BuildTree(rootID, entries)
	require.NotNil(t, tree)
	require.Equal(t, rootID, tree.UserID)
	require.Len(t, tree.Children, 2)
	require.Equal(t, agentA, tree.Children[0].UserID)
	require.Equal(t, agentB, tree.Children[1].UserID)
	require.Len(t, tree.Children[0].Children, 1)
	require.Equal(t, superWorker, tree.Children[0].Children[0].UserID)
	require.Equal(t, worker, tree.Children[0].Children[0].Children[0].UserID)
	require.Empty(t, tree.Children[1].Children)
}

func TestBuildTree_RootAbsent(t *testing.T) {
	entries := []models.HierarchyEntry{
		*entry(uuid.New(), nil, models.RoleSuperAgent, 1),
	}
	require.Nil(t, BuildTree(uuid.New(), entries))
}

func TestBuildTree_SubtreeRootKeepsOutsideParent(t *testing.T) {
	// An agent viewing their own subtree: the agent's parent is not part
	// of the slice and must not break nesting.
	agentID := uuid.New()
	clientID := uuid.New()
	entries := []models.HierarchyEntry{
		*entry(agentID, idPtr(uuid.New()), models.RoleAgent, 2),
		*entry(clientID, idPtr(agentID), models.RoleClient, 3),
	}

	tree := BuildTree(agentID, entries)
	require.NotNil(t, tree)
	require.Len(t, tree.Children, 1)
	require.Equal(t, clientID, tree.Children[0].UserID)
}
