package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/realtime"
	"github.com/scribeworks/backend/pkg/queue"
)

// ErrQueueUnavailable means broadcast was requested without a job queue wired.
var ErrQueueUnavailable = errors.New("job queue unavailable")

// Store persists notification rows.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// Graph provides the hierarchy lookups the permission walk needs.
type Graph interface {
	GetNode(ctx context.Context, userID uuid.UUID) (*models.HierarchyNode, error)
	DescendantIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Events publishes realtime events to a connected user. May be nil.
type Events interface {
	Publish(userID uuid.UUID, event string, data interface{})
}

// FanoutResult reports which targets received a notification.
type FanoutResult struct {
	Delivered []uuid.UUID `json:"delivered"`
	Skipped   []uuid.UUID `json:"skipped"`
}

// Service writes notifications subject to hierarchy permission: a sender
// may notify their descendants and their direct parent, nobody else.
type Service struct {
	store  Store
	graph  Graph
	queue  *queue.Queue
	events Events
	logger *zap.Logger
}

// NewService creates a notifications service. queue and events may be nil.
func NewService(store Store, graph Graph, q *queue.Queue, events Events, logger *zap.Logger) *Service {
	return &Service{store: store, graph: graph, queue: q, events: events, logger: logger}
}

// Notify writes a notification per permitted target and reports who was
// delivered to and who was skipped. Targets outside the sender's subtree
// that are not the sender's direct parent are skipped, not errors.
func (s *Service) Notify(ctx context.Context, senderID uuid.UUID, targetIDs []uuid.UUID, kind models.NotificationKind, title, body string, projectID *uuid.UUID) (*FanoutResult, error) {
	sender, err := s.graph.GetNode(ctx, senderID)
	if err != nil {
		return nil, err
	}
	descIDs, err := s.graph.DescendantIDs(ctx, senderID)
	if err != nil {
		return nil, err
	}
	descendants := make(map[uuid.UUID]bool, len(descIDs))
	for _, id := range descIDs {
		descendants[id] = true
	}

	result := &FanoutResult{Delivered: []uuid.UUID{}, Skipped: []uuid.UUID{}}
	seen := make(map[uuid.UUID]bool, len(targetIDs))
	for _, target := range targetIDs {
		if seen[target] {
			continue
		}
		seen[target] = true

		permitted := descendants[target] || (sender.ParentID != nil && *sender.ParentID == target)
		if !permitted {
			result.Skipped = append(result.Skipped, target)
			continue
		}
		n := &models.Notification{
			SenderID:    senderID,
			RecipientID: target,
			Kind:        kind,
			Title:       title,
			Body:        body,
			ProjectID:   projectID,
		}
		if err := s.store.Insert(ctx, n); err != nil {
			return nil, err
		}
		if s.events != nil {
			s.events.Publish(target, realtime.EventNotification, n)
		}
		result.Delivered = append(result.Delivered, target)
	}

	s.logger.Info("notification fan-out",
		zap.String("sender_id", senderID.String()),
		zap.Int("delivered", len(result.Delivered)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// System writes a notification without the permission walk. Used for
// platform-generated messages (assignment, hierarchy move, project status)
// whose recipient is fixed by the triggering operation.
func (s *Service) System(ctx context.Context, senderID, recipientID uuid.UUID, kind models.NotificationKind, title, body string, projectID *uuid.UUID) error {
	n := &models.Notification{
		SenderID:    senderID,
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Body:        body,
		ProjectID:   projectID,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(recipientID, realtime.EventNotification, n)
	}
	return nil
}

// Broadcast enqueues a whole-subtree fan-out; the queue worker loads the
// sender's descendants at run time and writes one row per member.
func (s *Service) Broadcast(ctx context.Context, senderID uuid.UUID, title, body string) error {
	if s.queue == nil {
		return ErrQueueUnavailable
	}
	return s.queue.EnqueueNotificationFanout(ctx, queue.NotificationFanoutPayload{
		SenderID: senderID,
		Title:    title,
		Body:     body,
	})
}
