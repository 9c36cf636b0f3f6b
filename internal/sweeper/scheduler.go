package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	sweeper  *Service
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  bool
}

func NewScheduler(sweeper *Service, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает свипер в фоне: первый проход сразу, дальше по тикеру.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting reservation sweeper", zap.Duration("interval", s.interval))
	s.started = true
	go s.run(ctx)
}

// Stop останавливает планировщик и ждёт завершения текущего прохода.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping reservation sweeper")
		close(s.stopCh)
	})
	if s.started {
		<-s.done
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			s.log.Info("reservation sweeper stopped")
			return
		case <-ctx.Done():
			s.log.Info("reservation sweeper cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	rep, err := s.sweeper.RunOnce(ctx)
	if err != nil {
		s.log.Error("reservation sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("reservation sweep done",
		zap.Int("expired", rep.Expired),
		zap.Int("orphaned", rep.Orphaned),
		zap.Int("failed", rep.Failed))
}

// RunOnceNow выполняет проход немедленно (админский эндпоинт).
func (s *Scheduler) RunOnceNow(ctx context.Context) (Report, error) {
	return s.sweeper.RunOnce(ctx)
}
