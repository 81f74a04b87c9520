package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/realtime"
)

var (
	// ErrUserNotFound means the moved user has no hierarchy row.
	ErrUserNotFound = errors.New("user has no hierarchy node")
	// ErrParentNotFound means the proposed parent has no hierarchy row.
	ErrParentNotFound = errors.New("proposed parent has no hierarchy node")
	// ErrNotTreeRoot means the requester roots neither the user's current
	// tree nor the destination tree.
	ErrNotTreeRoot = errors.New("only the super agent rooting the user's current or destination tree may move them")
)

// Events publishes realtime events to a connected user. Satisfied by the
// realtime hub; nil disables publishing.
type Events interface {
	Publish(userID uuid.UUID, event string, data interface{})
}

// Notifier records a notification for a user. Satisfied by the
// notifications service; nil disables it.
type Notifier interface {
	System(ctx context.Context, senderID, recipientID uuid.UUID, kind models.NotificationKind, title, body string, projectID *uuid.UUID) error
}

// Service applies hierarchy moves.
type Service struct {
	repo     *Repository
	events   Events
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a hierarchy service. events and notifier may be nil.
func NewService(repo *Repository, events Events, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{repo: repo, events: events, notifier: notifier, logger: logger}
}

// MoveInput describes a requested re-parenting.
type MoveInput struct {
	UserID      uuid.UUID
	NewParentID uuid.UUID
	ActorID     uuid.UUID
	Reason      *string
}

// Move re-parents a user under a new parent and shifts their whole subtree,
// inside one transaction with both hierarchy rows locked. Rejected moves
// (role/depth violation, cycle, no-op) come back as an invalid MoveCheck
// without an error; errors are reserved for missing rows, permission and
// storage failures.
func (s *Service) Move(ctx context.Context, in MoveInput) (*models.HierarchyChange, MoveCheck, error) {
	if in.UserID == in.NewParentID {
		return nil, invalidMove("a user cannot be their own parent"), nil
	}

	tx, err := s.repo.pool.Begin(ctx)
	if err != nil {
		return nil, MoveCheck{}, err
	}
	defer tx.Rollback(ctx)

	// Lock the two rows in id order so concurrent opposite moves serialize
	// instead of deadlocking.
	entries := make(map[uuid.UUID]*models.HierarchyEntry, 2)
	for _, id := range lockOrder(in.UserID, in.NewParentID) {
		e, err := s.repo.entryForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if id == in.UserID {
					return nil, MoveCheck{}, ErrUserNotFound
				}
				return nil, MoveCheck{}, ErrParentNotFound
			}
			return nil, MoveCheck{}, err
		}
		entries[id] = e
	}
	moved, parent := entries[in.UserID], entries[in.NewParentID]

	if in.ActorID != moved.SuperAgentID && in.ActorID != parent.SuperAgentID {
		return nil, MoveCheck{}, ErrNotTreeRoot
	}

	ancestors, err := s.repo.ancestorIDsTx(ctx, tx, parent.UserID)
	if err != nil {
		return nil, MoveCheck{}, err
	}
	deepest, err := s.repo.maxSubtreeLevelTx(ctx, tx, moved.UserID)
	if err != nil {
		return nil, MoveCheck{}, err
	}

	check := planMove(moved, parent, ancestors, deepest)
	if !check.Valid {
		return nil, check, nil
	}

	if err := s.repo.moveSubtreeTx(ctx, tx, moved.UserID, parent.UserID, check.NewLevel-moved.Level, parent.SuperAgentID); err != nil {
		return nil, MoveCheck{}, err
	}
	change := &models.HierarchyChange{
		UserID:      moved.UserID,
		OldParentID: moved.ParentID,
		NewParentID: parent.UserID,
		OldLevel:    moved.Level,
		NewLevel:    check.NewLevel,
		ChangedBy:   in.ActorID,
		Reason:      in.Reason,
	}
	if err := s.repo.insertChangeTx(ctx, tx, change); err != nil {
		return nil, MoveCheck{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, MoveCheck{}, err
	}

	s.logger.Info("hierarchy move applied",
		zap.String("user_id", moved.UserID.String()),
		zap.String("new_parent_id", parent.UserID.String()),
		zap.Int("old_level", moved.Level),
		zap.Int("new_level", check.NewLevel),
		zap.String("changed_by", in.ActorID.String()))

	if s.events != nil {
		s.events.Publish(moved.UserID, realtime.EventHierarchyMove, change)
	}
	if s.notifier != nil {
		body := fmt.Sprintf("You now report to %s.", parent.FullName)
		if err := s.notifier.System(ctx, in.ActorID, moved.UserID, models.NotifyHierarchyMove, "Your position changed", body, nil); err != nil {
			s.logger.Warn("hierarchy move notification", zap.Error(err))
		}
	}
	return change, check, nil
}

func lockOrder(a, b uuid.UUID) [2]uuid.UUID {
	for i := range a {
		if a[i] < b[i] {
			return [2]uuid.UUID{a, b}
		}
		if a[i] > b[i] {
			return [2]uuid.UUID{b, a}
		}
	}
	return [2]uuid.UUID{a, b}
}
