package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/hierarchy"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/notifications"
	"github.com/scribeworks/backend/internal/realtime"
	"github.com/scribeworks/backend/internal/reports"
	"github.com/scribeworks/backend/pkg/queue"
)

// Events publishes realtime events to a user. The worker publishes through
// Redis so connected API instances deliver to their sockets.
type Events interface {
	Publish(userID uuid.UUID, event string, data interface{})
}

// Processor consumes broadcast fan-out and report export jobs.
type Processor struct {
	hierarchy *hierarchy.Repository
	notes     *notifications.Repository
	exporter  *reports.Exporter
	queue     *queue.Queue
	events    Events
	logger    *zap.Logger
}

// NewProcessor creates a job processor. exporter and events may be nil;
// export jobs are then dropped with a warning and realtime pushes skipped.
func NewProcessor(h *hierarchy.Repository, notes *notifications.Repository, exporter *reports.Exporter, q *queue.Queue, events Events, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{hierarchy: h, notes: notes, exporter: exporter, queue: q, events: events, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeNotificationFanout:
		return p.fanout(ctx, job)
	case queue.JobTypeReportExport:
		return p.export(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// fanout writes one notification row per subtree member and pushes the
// realtime event. Per-recipient failures are logged and skipped rather
// than retried; a whole-job retry would re-deliver to every recipient.
func (p *Processor) fanout(ctx context.Context, job *queue.Job) error {
	var payload queue.NotificationFanoutPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	recipients, err := p.hierarchy.DescendantIDs(ctx, payload.SenderID)
	if err != nil {
		return fmt.Errorf("load subtree: %w", err)
	}

	delivered := 0
	for _, recipientID := range recipients {
		n := &models.Notification{
			SenderID:    payload.SenderID,
			RecipientID: recipientID,
			Kind:        models.NotifyBroadcast,
			Title:       payload.Title,
			Body:        payload.Body,
		}
		if err := p.notes.Insert(ctx, n); err != nil {
			p.logger.Warn("broadcast insert failed",
				zap.String("recipient_id", recipientID.String()), zap.Error(err))
			continue
		}
		if p.events != nil {
			p.events.Publish(recipientID, realtime.EventNotification, n)
		}
		delivered++
	}

	if delivered == 0 && len(recipients) > 0 {
		return fmt.Errorf("broadcast delivered to none of %d recipients", len(recipients))
	}
	p.logger.Info("broadcast delivered",
		zap.String("sender_id", payload.SenderID.String()),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", delivered))
	return nil
}

func (p *Processor) export(ctx context.Context, job *queue.Job) error {
	var payload queue.ReportExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.exporter == nil {
		p.logger.Warn("report export requested without S3 configured, dropping job",
			zap.String("report_id", payload.ReportID.String()))
		return nil
	}
	return p.exporter.Export(ctx, payload.ReportID)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
