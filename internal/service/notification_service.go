package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/internal/directory"
	"github.com/noah-isme/geoattend-api/pkg/config"
	"github.com/noah-isme/geoattend-api/pkg/jobs"
)

// NotificationService delivers notifications to the notification collaborator
// through a background worker queue, keeping the pipeline non-blocking.
type NotificationService struct {
	sink   directory.NotificationSink
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the dispatcher and its queue.
func NewNotificationService(sink directory.NotificationSink, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{sink: sink, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues a notification for delivery. Failures are logged and
// dropped; attendance processing never depends on delivery.
func (s *NotificationService) Dispatch(n directory.Notification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    n.Type,
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("dropping notification", zap.String("type", n.Type), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(directory.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.sink.Send(sendCtx, n)
}
