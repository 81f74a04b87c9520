package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
)

type fakeStore struct {
	rows []models.Notification
	err  error
}

func (f *fakeStore) Insert(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	f.rows = append(f.rows, *n)
	return nil
}

type fakeGraph struct {
	nodes map[uuid.UUID]*models.HierarchyNode
	desc  map[uuid.UUID][]uuid.UUID
}

func (f *fakeGraph) GetNode(_ context.Context, id uuid.UUID) (*models.HierarchyNode, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, errors.New("no hierarchy node")
	}
	return n, nil
}

func (f *fakeGraph) DescendantIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return f.desc[id], nil
}

type fakeEvents struct {
	published map[uuid.UUID][]string
}

func (f *fakeEvents) Publish(userID uuid.UUID, event string, _ interface{}) {
	if f.published == nil {
		f.published = make(map[uuid.UUID][]string)
	}
	f.published[userID] = append(f.published[userID], event)
}

func newTestService(store *fakeStore, graph *fakeGraph, events *fakeEvents) *Service {
	var ev Events
	if events != nil {
		ev = events
	}
	return NewService(store, graph, nil, ev, zap.NewNop())
}

func TestNotify_DescendantsAndParentPermitted(t *testing.T) {
	sender := uuid.New()
	parent := uuid.New()
	child := uuid.New()
	grandchild := uuid.New()
	outsider := uuid.New()

	graph := &fakeGraph{
		nodes: map[uuid.UUID]*models.HierarchyNode{
			sender: {UserID: sender, ParentID: &parent, Level: 2},
		},
		desc: map[uuid.UUID][]uuid.UUID{
			sender: {child, grandchild},
		},
	}
	store := &fakeStore{}
	events := &fakeEvents{}
	svc := newTestService(store, graph, events)

	result, err := svc.Notify(context.Background(), sender, []uuid.UUID{child, grandchild, parent, outsider},
		models.NotifyMessage, "Schedule", "New deadlines posted", nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{child, grandchild, parent}, result.Delivered)
	require.Equal(t, []uuid.UUID{outsider}, result.Skipped)
	require.Len(t, store.rows, 3)
	for _, n := range store.rows {
		require.Equal(t, sender, n.SenderID)
		require.Equal(t, models.NotifyMessage, n.Kind)
		require.Equal(t, "Schedule", n.Title)
	}
	require.Len(t, events.published, 3)
	require.Equal(t, []string{"notification"}, events.published[child])
}

func TestNotify_WorkerReachesOnlyParent(t *testing.T) {
	worker := uuid.New()
	superWorker := uuid.New()
	sibling := uuid.New()

	graph := &fakeGraph{
		nodes: map[uuid.UUID]*models.HierarchyNode{
			worker: {UserID: worker, ParentID: &superWorker, Level: 4},
		},
		desc: map[uuid.UUID][]uuid.UUID{},
	}
	store := &fakeStore{}
	svc := newTestService(store, graph, nil)

	result, err := svc.Notify(context.Background(), worker, []uuid.UUID{superWorker, sibling},
		models.NotifyMessage, "Done", "Draft submitted", nil)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{superWorker}, result.Delivered)
	require.Equal(t, []uuid.UUID{sibling}, result.Skipped)
}

func TestNotify_DeduplicatesTargets(t *testing.T) {
	sender := uuid.New()
	child := uuid.New()

	graph := &fakeGraph{
		nodes: map[uuid.UUID]*models.HierarchyNode{sender: {UserID: sender, Level: 1}},
		desc:  map[uuid.UUID][]uuid.UUID{sender: {child}},
	}
	store := &fakeStore{}
	svc := newTestService(store, graph, nil)

	result, err := svc.Notify(context.Background(), sender, []uuid.UUID{child, child, child},
		models.NotifyMessage, "Hi", "Once only", nil)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{child}, result.Delivered)
	require.Len(t, store.rows, 1)
}

func TestNotify_StoreErrorPropagates(t *testing.T) {
	sender := uuid.New()
	child := uuid.New()

	graph := &fakeGraph{
		nodes: map[uuid.UUID]*models.HierarchyNode{sender: {UserID: sender, Level: 1}},
		desc:  map[uuid.UUID][]uuid.UUID{sender: {child}},
	}
	store := &fakeStore{err: errors.New("insert failed")}
	svc := newTestService(store, graph, nil)

	_, err := svc.Notify(context.Background(), sender, []uuid.UUID{child},
		models.NotifyMessage, "Hi", "Body", nil)
	require.Error(t, err)
}

func TestSystem_BypassesPermissionWalk(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()
	projectID := uuid.New()

	store := &fakeStore{}
	events := &fakeEvents{}
	svc := newTestService(store, &fakeGraph{}, events)

	err := svc.System(context.Background(), sender, recipient, models.NotifyAssignment,
		"Assigned", "You were assigned to a project", &projectID)
	require.NoError(t, err)
	require.Len(t, store.rows, 1)
	require.Equal(t, recipient, store.rows[0].RecipientID)
	require.Equal(t, models.NotifyAssignment, store.rows[0].Kind)
	require.Equal(t, &projectID, store.rows[0].ProjectID)
	require.Contains(t, events.published, recipient)
}

func TestBroadcast_WithoutQueue(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGraph{}, nil)
	err := svc.Broadcast(context.Background(), uuid.New(), "Title", "Body")
	require.ErrorIs(t, err, ErrQueueUnavailable)
}
