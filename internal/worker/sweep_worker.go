package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/escalation"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// ComplaintSource is the slice of the complaint store the sweeper needs.
type ComplaintSource interface {
	ListOpen(ctx context.Context) ([]domain.Complaint, error)
	UpdateEscalation(ctx context.Context, id string, fromLevel int, fromStatus domain.ComplaintStatus, toLevel int, toStatus domain.ComplaintStatus) (bool, error)
}

// SweepStats summarizes one sweep run.
type SweepStats struct {
	Checked     int
	Escalated   int
	Deescalated int
	Errors      int
}

// Sweeper periodically reclassifies open complaints against their due dates
// and commits level changes with compare-and-set writes, so overlapping runs
// cannot double-apply a change.
type Sweeper struct {
	source        ComplaintSource
	history       repository.ComplaintHistoryRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	interval      time.Duration
	recordTimeout time.Duration
	now           func() time.Time
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	Source        ComplaintSource
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Interval      time.Duration
	RecordTimeout time.Duration
}

// NewSweeper constructs the sweeper.
func NewSweeper(deps SweeperDependencies) *Sweeper {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	recordTimeout := deps.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	return &Sweeper{
		source:        deps.Source,
		history:       deps.HistoryRepo,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		interval:      interval,
		recordTimeout: recordTimeout,
		now:           time.Now,
	}
}

// Run sweeps on a fixed cadence until the context is cancelled. One sweep
// runs immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	stats, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("escalation sweep finished",
		zap.Int("checked", stats.Checked),
		zap.Int("escalated", stats.Escalated),
		zap.Int("deescalated", stats.Deescalated),
		zap.Int("errors", stats.Errors))
}

// SweepOnce reclassifies every open complaint. A failure on one record is
// logged and counted, then the sweep moves on.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	open, err := s.source.ListOpen(ctx)
	if err != nil {
		s.metrics.RecordSweep(0, 0, 1)
		return stats, err
	}
	now := s.now()

	for i := range open {
		complaint := &open[i]
		stats.Checked++
		recordCtx, cancel := context.WithTimeout(ctx, s.recordTimeout)
		err := s.sweepRecord(recordCtx, complaint, now, &stats)
		cancel()
		if err != nil {
			stats.Errors++
			s.logger.Warn("sweep record failed",
				zap.String("complaint_id", complaint.ID),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.metrics.RecordSweep(stats.Checked, stats.Escalated, stats.Errors)
	return stats, nil
}

func (s *Sweeper) sweepRecord(ctx context.Context, complaint *domain.Complaint, now time.Time, stats *SweepStats) error {
	classification := escalation.Classify(complaint.DueDate, complaint.Status, now)

	if classification.Overdue {
		// A manually raised level never regresses while the record stays
		// overdue.
		if classification.Level <= complaint.EscalationLevel {
			return nil
		}
		return s.escalate(ctx, complaint, classification, stats)
	}

	// No longer overdue: a due-date extension pulls an ESCALATED complaint
	// back into the working queue.
	if complaint.Status == domain.ComplaintStatusEscalated {
		return s.deescalate(ctx, complaint, stats)
	}
	return nil
}

func (s *Sweeper) escalate(ctx context.Context, complaint *domain.Complaint, classification escalation.Classification, stats *SweepStats) error {
	newStatus := domain.ComplaintStatusEscalated
	applied, err := s.source.UpdateEscalation(ctx,
		complaint.ID,
		complaint.EscalationLevel, complaint.Status,
		classification.Level, newStatus)
	if err != nil {
		return err
	}
	if !applied {
		// Another sweep or a lifecycle transition got there first.
		return nil
	}

	oldLevel := complaint.EscalationLevel
	oldStatus := complaint.Status
	complaint.EscalationLevel = classification.Level
	complaint.Status = newStatus
	stats.Escalated++

	s.recordChange(ctx, complaint.ID, oldLevel, oldStatus, classification.Level, newStatus)
	s.publish(ctx, events.Event{
		Type:        events.EventComplaintEscalated,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{Type: domain.SubjectTypeSystem},
		Payload: events.ComplaintEscalatedPayload{
			OldLevel:     oldLevel,
			NewLevel:     classification.Level,
			DaysOverdue:  classification.DaysOverdue,
			StaffName:    complaint.AssignedStaffName,
			StudentEmail: complaint.StudentEmail,
		},
	})
	return nil
}

func (s *Sweeper) deescalate(ctx context.Context, complaint *domain.Complaint, stats *SweepStats) error {
	applied, err := s.source.UpdateEscalation(ctx,
		complaint.ID,
		complaint.EscalationLevel, domain.ComplaintStatusEscalated,
		0, domain.ComplaintStatusInProgress)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	oldLevel := complaint.EscalationLevel
	complaint.EscalationLevel = 0
	complaint.Status = domain.ComplaintStatusInProgress
	stats.Deescalated++

	s.recordChange(ctx, complaint.ID, oldLevel, domain.ComplaintStatusEscalated, 0, domain.ComplaintStatusInProgress)
	s.publish(ctx, events.Event{
		Type:        events.EventComplaintDeescalated,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{Type: domain.SubjectTypeSystem},
		Payload: events.ComplaintDeescalatedPayload{
			OldLevel:     oldLevel,
			StudentEmail: complaint.StudentEmail,
		},
	})
	return nil
}

func (s *Sweeper) recordChange(ctx context.Context, complaintID string, oldLevel int, oldStatus domain.ComplaintStatus, newLevel int, newStatus domain.ComplaintStatus) {
	if s.history == nil {
		return
	}
	err := s.history.Create(ctx, &domain.ComplaintHistory{
		ComplaintID:   complaintID,
		ChangedByType: domain.SubjectTypeSystem,
		ChangeType:    domain.ChangeTypeEscalation,
		OldValue: map[string]any{
			"escalation_level": oldLevel,
			"status":           oldStatus,
		},
		NewValue: map[string]any{
			"escalation_level": newLevel,
			"status":           newStatus,
		},
	})
	if err != nil {
		s.logger.Warn("escalation history write failed",
			zap.String("complaint_id", complaintID),
			zap.Error(err))
	}
}

func (s *Sweeper) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}
