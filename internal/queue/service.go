package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/osama-agency/telesklad-sub006/internal/job"
)

// Service is the producer-side API used by request handlers. Enqueue is
// fire-and-forget: the HTTP response that triggered it never waits on, or
// learns about, the enqueue outcome.
type Service struct {
	store *Store
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// queueFor routes a job kind to its queue.
func queueFor(t job.Type) string {
	if t == job.TypeSendReport {
		return Reports
	}
	return Notifications
}

// Enqueue builds a job from payload and stores it, due after delay.
// Failures are logged and swallowed; if the process dies between the state
// mutation that triggered this call and the ZADD, the notification is lost.
func (s *Service) Enqueue(ctx context.Context, t job.Type, payload any, delay time.Duration) {
	j, err := job.New(t, payload, delay)
	if err != nil {
		s.log.Error("enqueue: build job", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if err := s.store.Add(ctx, queueFor(t), j); err != nil {
		s.log.Error("enqueue: store job",
			zap.String("type", string(t)),
			zap.String("job_id", j.ID),
			zap.Error(err))
		return
	}
	s.log.Debug("enqueued",
		zap.String("type", string(t)),
		zap.String("job_id", j.ID),
		zap.Time("execute_at", j.ExecuteAt))
}

// Stats reports the current depth of every known queue. Empty or missing
// queues report zero; the counts are read live, never cached.
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(Known))
	for _, q := range Known {
		n, err := s.store.Depth(ctx, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}
