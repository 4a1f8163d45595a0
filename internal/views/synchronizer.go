package views

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ComplaintReader is the slice of the complaint store the synchronizer reads.
type ComplaintReader interface {
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error)
}

// ChangeNotice is the cross-instance fan-out message published after a local
// refresh, so sibling instances refresh the same record.
type ChangeNotice struct {
	ComplaintID string           `json:"complaint_id"`
	EventType   events.EventType `json:"event_type"`
}

// Synchronizer keeps registered mirrors consistent with the canonical store.
// Every refresh re-reads the canonical record instead of trusting the event
// payload, so a stale or reordered notification cannot corrupt a mirror.
type Synchronizer struct {
	complaints ComplaintReader
	redis      *redis.Client
	channel    string
	logger     *zap.Logger

	mu      sync.RWMutex
	mirrors []Mirror
}

// SynchronizerDependencies bundles collaborators. RedisClient may be nil, in
// which case fan-out stays local to this instance.
type SynchronizerDependencies struct {
	ComplaintRepo ComplaintReader
	RedisClient   *redis.Client
	Channel       string
	Logger        *zap.Logger
}

// NewSynchronizer constructs the synchronizer.
func NewSynchronizer(deps SynchronizerDependencies) *Synchronizer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := deps.Channel
	if channel == "" {
		channel = "complaints:changed"
	}
	return &Synchronizer{
		complaints: deps.ComplaintRepo,
		redis:      deps.RedisClient,
		channel:    channel,
		logger:     logger,
	}
}

// Register adds a mirror and primes it from the canonical store.
func (s *Synchronizer) Register(ctx context.Context, mirror Mirror) error {
	s.mu.Lock()
	s.mirrors = append(s.mirrors, mirror)
	s.mu.Unlock()

	complaints, err := s.complaints.ListWithFilter(ctx, repository.ComplaintFilter{Limit: 1000})
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, complaint := range complaints {
		mirror.Apply(complaint)
	}
	return nil
}

// RegisterHandlers subscribes the synchronizer to the full event stream.
func (s *Synchronizer) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, s.handleEvent)
	}
}

func (s *Synchronizer) handleEvent(ctx context.Context, event events.Event) error {
	if err := s.Refresh(ctx, event.ComplaintID); err != nil {
		return err
	}
	s.publishNotice(ctx, ChangeNotice{ComplaintID: event.ComplaintID, EventType: event.Type})
	return nil
}

// Refresh re-reads one complaint and reapplies it to every mirror.
func (s *Synchronizer) Refresh(ctx context.Context, complaintID string) error {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		mapped := apperrors.MapError(err)
		if apperrors.HasCode(mapped, apperrors.CodeNotFound) {
			s.drop(complaintID)
			return nil
		}
		return mapped
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mirror := range s.mirrors {
		mirror.Apply(*complaint)
	}
	return nil
}

// ResyncAll rebuilds every mirror from the canonical store. Recovery path for
// missed notifications.
func (s *Synchronizer) ResyncAll(ctx context.Context) error {
	complaints, err := s.complaints.ListWithFilter(ctx, repository.ComplaintFilter{Limit: 1000})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mirror := range s.mirrors {
		for _, complaint := range complaints {
			mirror.Apply(complaint)
		}
	}
	return nil
}

func (s *Synchronizer) drop(complaintID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mirror := range s.mirrors {
		mirror.Drop(complaintID)
	}
}

func (s *Synchronizer) publishNotice(ctx context.Context, notice ChangeNotice) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		s.logger.Warn("change notice marshal failed", zap.Error(err))
		return
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Warn("change notice publish failed",
			zap.String("channel", s.channel),
			zap.Error(err))
	}
}

// StartListener consumes change notices published by sibling instances and
// refreshes the named complaint locally. Returns immediately when no Redis
// client is configured.
func (s *Synchronizer) StartListener(ctx context.Context) {
	if s.redis == nil {
		return
	}
	go func() {
		pubsub := s.redis.Subscribe(ctx, s.channel)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var notice ChangeNotice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					s.logger.Warn("change notice unmarshal failed", zap.Error(err))
					continue
				}
				if err := s.Refresh(ctx, notice.ComplaintID); err != nil {
					s.logger.Warn("mirror refresh failed",
						zap.String("complaint_id", notice.ComplaintID),
						zap.Error(err))
				}
			}
		}
	}()
}
