package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/pricing"
	"github.com/scribeworks/backend/internal/realtime"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNotQuotable     = errors.New("project can only be requoted while awaiting or holding a quote")
	ErrNotProjectAgent = errors.New("only the project's agent or the tree's super agent may requote")
)

// TransitionError reports a status change the lifecycle table forbids.
type TransitionError struct {
	From models.ProjectStatus
	To   models.ProjectStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("a %s project cannot move to %s", e.From, e.To)
}

// RateSource resolves an agent's active pricing configuration.
type RateSource interface {
	ActiveForAgent(ctx context.Context, agentID uuid.UUID) (*models.AgentPricingConfig, error)
}

// Graph resolves hierarchy positions.
type Graph interface {
	GetNode(ctx context.Context, userID uuid.UUID) (*models.HierarchyNode, error)
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

// statusEvent is the compact payload pushed over the websocket feed;
// monetary fields never travel on it.
type statusEvent struct {
	ProjectID uuid.UUID            `json:"project_id"`
	Title     string               `json:"title"`
	Status    models.ProjectStatus `json:"status"`
}

// Service creates, prices and transitions projects.
type Service struct {
	repo     *Repository
	engine   *pricing.Engine
	rates    RateSource
	graph    Graph
	events   Events
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a project service. events and notifier may be nil.
func NewService(repo *Repository, engine *pricing.Engine, rates RateSource, graph Graph, events Events, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{repo: repo, engine: engine, rates: rates, graph: graph, events: events, notifier: notifier, logger: logger}
}

// CreateInput describes a client's new project.
type CreateInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	WordCount   int
	Deadline    time.Time
}

// Create prices the project on the system table and persists it awaiting a
// quote. The client's recruiting agent is told there is work to price.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Project, error) {
	quote, err := s.engine.Quote(pricing.QuoteRequest{WordCount: in.WordCount, Deadline: in.Deadline})
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		WordCount:   in.WordCount,
		Deadline:    in.Deadline,
		Status:      models.StatusPendingQuote,
	}
	applyQuote(p, quote)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("client_id", in.ClientID.String()),
		zap.Int("word_count", in.WordCount),
		zap.String("urgency", p.UrgencyLevel))

	if s.events != nil || s.notifier != nil {
		node, err := s.graph.GetNode(ctx, in.ClientID)
		if err != nil {
			s.logger.Warn("client hierarchy lookup failed", zap.Error(err))
		} else if node.ParentID != nil {
			if s.events != nil {
				s.events.Publish(*node.ParentID, realtime.EventProjectStatus, statusEvent{ProjectID: p.ID, Title: p.Title, Status: p.Status})
			}
			if s.notifier != nil {
				body := fmt.Sprintf("%q (%d words) is awaiting a quote.", p.Title, p.WordCount)
				if err := s.notifier.System(ctx, in.ClientID, *node.ParentID, models.NotifyProjectStatus, "New project", body, &p.ID); err != nil {
					s.logger.Warn("project notification failed", zap.Error(err))
				}
			}
		}
	}
	return p, nil
}

// RequoteInput describes a reprice request.
type RequoteInput struct {
	ProjectID uuid.UUID
	ActorID   uuid.UUID
	ActorRole models.Role
}

// Requote reprices the project, preferring the responsible agent's active
// rate configuration over the system table, and moves it to quoted.
func (s *Service) Requote(ctx context.Context, in RequoteInput) (*models.Project, error) {
	p, err := s.repo.GetByID(ctx, in.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if err := s.requotePermitted(ctx, p, in); err != nil {
		return nil, err
	}
	if p.Status != models.StatusPendingQuote && p.Status != models.StatusQuoted {
		return nil, ErrNotQuotable
	}

	agentID := p.AgentID
	if agentID == nil && in.ActorRole == models.RoleAgent {
		agentID = &in.ActorID
	}
	var rates *pricing.AgentRates
	if agentID != nil {
		cfg, err := s.rates.ActiveForAgent(ctx, *agentID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		rates = pricing.RatesFrom(cfg)
	}

	quote, err := s.engine.Quote(pricing.QuoteRequest{WordCount: p.WordCount, Deadline: p.Deadline, AgentRates: rates})
	if err != nil {
		return nil, err
	}
	applyQuote(p, quote)
	p.Status = models.StatusQuoted
	if err := s.repo.SaveQuote(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("project requoted",
		zap.String("project_id", p.ID.String()),
		zap.String("actor_id", in.ActorID.String()),
		zap.Bool("agent_rates", rates != nil))

	s.publishStatus(p)
	if s.notifier != nil && in.ActorID != p.ClientID {
		body := fmt.Sprintf("%q has been quoted at £%s.", p.Title, p.CostGBP)
		if err := s.notifier.System(ctx, in.ActorID, p.ClientID, models.NotifyProjectStatus, "Quote ready", body, &p.ID); err != nil {
			s.logger.Warn("quote notification failed", zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) requotePermitted(ctx context.Context, p *models.Project, in RequoteInput) error {
	switch in.ActorRole {
	case models.RoleSuperAgent:
		return nil
	case models.RoleAgent:
		if p.AgentID != nil && *p.AgentID == in.ActorID {
			return nil
		}
		if p.SubAgentID != nil && *p.SubAgentID == in.ActorID {
			return nil
		}
		if p.AgentID == nil {
			// Unassigned projects may be quoted by the agent whose subtree
			// the client belongs to.
			ok, err := s.graph.IsDescendant(ctx, in.ActorID, p.ClientID)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		return ErrNotProjectAgent
	default:
		return ErrNotProjectAgent
	}
}

// TransitionInput describes a status change request.
type TransitionInput struct {
	ProjectID uuid.UUID
	Next      models.ProjectStatus
	ActorID   uuid.UUID
	ActorRole models.Role
}

// Transition moves the project along the lifecycle table, re-reading the
// current status under a row lock so concurrent transitions serialize.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*models.Project, error) {
	tx, err := s.repo.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.statusForUpdateTx(ctx, tx, in.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if !current.CanTransition(in.Next) {
		return nil, &TransitionError{From: current, To: in.Next}
	}
	if err := s.repo.setStatusTx(ctx, tx, in.ProjectID, in.Next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project status changed",
		zap.String("project_id", p.ID.String()),
		zap.String("from", string(current)),
		zap.String("to", string(p.Status)),
		zap.String("actor_id", in.ActorID.String()))

	s.publishStatus(p)
	if s.notifier != nil && in.ActorID != p.ClientID {
		body := fmt.Sprintf("%q is now %s.", p.Title, p.Status)
		if err := s.notifier.System(ctx, in.ActorID, p.ClientID, models.NotifyProjectStatus, "Project status updated", body, &p.ID); err != nil {
			s.logger.Warn("status notification failed", zap.Error(err))
		}
	}
	return p, nil
}

// publishStatus pushes the status event to everyone on the project.
func (s *Service) publishStatus(p *models.Project) {
	if s.events == nil {
		return
	}
	ev := statusEvent{ProjectID: p.ID, Title: p.Title, Status: p.Status}
	for _, id := range participantIDs(p) {
		s.events.Publish(id, realtime.EventProjectStatus, ev)
	}
}

func participantIDs(p *models.Project) []uuid.UUID {
	ids := []uuid.UUID{p.ClientID}
	for _, slot := range []*uuid.UUID{p.AgentID, p.SubAgentID, p.WorkerID, p.SubWorkerID} {
		if slot != nil {
			ids = append(ids, *slot)
		}
	}
	return ids
}

// applyQuote writes the engine's breakdown onto the project. ProfitMargin
// records the amount charged above the base work cost; SystemProfit keeps
// the engine's internal accounting total.
func applyQuote(p *models.Project, q *pricing.Quote) {
	p.UrgencyLevel = q.UrgencyLevel
	p.CostGBP = models.Money(q.TotalCost)
	p.BasePrice = models.Money(q.BaseCost)
	p.DeadlineCharge = models.Money(q.UrgencyCharge)
	p.AgentFee = models.Money(q.Fees.AgentFee)
	p.SuperWorkerFee = models.Money(q.Fees.SuperWorkerFee)
	p.WorkerPayment = models.Money(q.Fees.WorkerFee)
	p.ProfitMargin = models.Money(q.TotalCost.Sub(q.BaseCost))
	p.SystemProfit = models.Money(q.Fees.SystemTotal)
}
