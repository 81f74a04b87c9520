package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/realtime"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrAssignerNotFound = errors.New("assigner not found in hierarchy")
	ErrAssigneeNotFound = errors.New("assignee not found in hierarchy")
)

// Graph resolves hierarchy positions for the capability checks.
type Graph interface {
	GetEntry(ctx context.Context, userID uuid.UUID) (*models.HierarchyEntry, error)
	IsDescendant(ctx context.Context, ancestorID, userID uuid.UUID) (bool, error)
}

// Events publishes realtime events to a user.
type Events interface {
	Publish(userID uuid.UUID, event string, data interface{})
}

// Notifier sends platform-generated notifications.
type Notifier interface {
	System(ctx context.Context, senderID, recipientID uuid.UUID, kind models.NotificationKind, title, body string, projectID *uuid.UUID) error
}

// Service validates and applies project assignments.
type Service struct {
	repo     *Repository
	graph    Graph
	events   Events
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates an assignment service. events and notifier may be nil.
func NewService(repo *Repository, graph Graph, events Events, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{repo: repo, graph: graph, events: events, notifier: notifier, logger: logger}
}

// AssignInput describes an assignment attempt.
type AssignInput struct {
	ProjectID  uuid.UUID
	AssigneeID uuid.UUID
	AssignerID uuid.UUID
	Type       models.AssignmentType
}

// Assign checks the assigner's capability over the assignee and applies the
// assignment when permitted. Rejected attempts are recorded in the history
// with is_valid = false; the returned check carries the rejection message.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*models.AssignmentRecord, AssignmentCheck, error) {
	assigner, err := s.graph.GetEntry(ctx, in.AssignerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, AssignmentCheck{}, ErrAssignerNotFound
		}
		return nil, AssignmentCheck{}, err
	}
	assignee, err := s.graph.GetEntry(ctx, in.AssigneeID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, AssignmentCheck{}, ErrAssigneeNotFound
		}
		return nil, AssignmentCheck{}, err
	}

	exists, err := s.repo.ProjectExists(ctx, in.ProjectID)
	if err != nil {
		return nil, AssignmentCheck{}, err
	}
	if !exists {
		return nil, AssignmentCheck{}, ErrProjectNotFound
	}

	subordinate, err := s.graph.IsDescendant(ctx, assigner.UserID, assignee.UserID)
	if err != nil {
		return nil, AssignmentCheck{}, err
	}

	check := ValidateAssignment(AssignmentInput{
		AssignerRole:   assigner.Role,
		AssigneeRole:   assignee.Role,
		AssignmentType: in.Type,
		AssignerLevel:  assigner.Level,
		AssigneeLevel:  assignee.Level,
		Subordinate:    subordinate,
	})

	rec := &models.AssignmentRecord{
		ProjectID:      in.ProjectID,
		AssigneeID:     in.AssigneeID,
		AssignerID:     in.AssignerID,
		AssignmentType: in.Type,
		IsValid:        check.Valid,
		LevelDiff:      check.LevelDiff,
	}

	if !check.Valid {
		if err := s.repo.InsertRejected(ctx, rec); err != nil {
			return nil, AssignmentCheck{}, err
		}
		s.logger.Info("assignment rejected",
			zap.String("project_id", in.ProjectID.String()),
			zap.String("assigner_id", in.AssignerID.String()),
			zap.String("assignee_id", in.AssigneeID.String()),
			zap.String("type", string(in.Type)),
			zap.String("reason", check.Message))
		return rec, check, nil
	}

	if err := s.repo.Apply(ctx, rec); err != nil {
		return nil, AssignmentCheck{}, err
	}

	s.logger.Info("assignment applied",
		zap.String("project_id", in.ProjectID.String()),
		zap.String("assignee_id", in.AssigneeID.String()),
		zap.String("type", string(in.Type)),
		zap.Int("level_diff", check.LevelDiff))

	if s.events != nil {
		s.events.Publish(in.AssigneeID, realtime.EventAssignment, rec)
	}
	if s.notifier != nil {
		role := strings.ReplaceAll(string(in.Type), "_", " ")
		body := fmt.Sprintf("You have been assigned as %s on a project by %s.", role, assigner.FullName)
		if err := s.notifier.System(ctx, in.AssignerID, in.AssigneeID, models.NotifyAssignment, "New assignment", body, &in.ProjectID); err != nil {
			s.logger.Warn("assignment notification failed", zap.Error(err))
		}
	}
	return rec, check, nil
}
