package hierarchy

import (
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/models"
)

// BuildTree nests flat subtree entries under the given root. Entries must
// contain the root; children keep the order of the input slice. Entries
// whose parent is outside the slice are dropped (they belong to a
// different subtree).
func BuildTree(rootID uuid.UUID, entries []models.HierarchyEntry) *models.TreeNode {
	byID := make(map[uuid.UUID]*models.TreeNode, len(entries))
	for i := range entries {
		byID[entries[i].UserID] = &models.TreeNode{HierarchyEntry: entries[i], Children: []*models.TreeNode{}}
	}
	root, ok := byID[rootID]
	if !ok {
		return nil
	}
	for i := range entries {
		e := &entries[i]
		if e.UserID == rootID || e.ParentID == nil {
			continue
		}
		if parent, ok := byID[*e.ParentID]; ok {
			parent.Children = append(parent.Children, byID[e.UserID])
		}
	}
	return root
}
