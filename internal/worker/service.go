package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/queue"

	"github.com/hibiken/asynq"
)

const reserveSweepBatchSize = 500

// Service runs the async queue consumer.
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService creates the queue consumer service.
func NewService(cfg *config.QueueConfig, settlement config.SettlementConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	sweepInterval := time.Duration(settlement.ReserveSweepSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the consumer and the reserve sweep loop.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.ReserveService != nil {
		go s.runReserveSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the consumer down.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runReserveSweepLoop backstops the delayed release tasks. A task lost
// to a Redis flush or a crashed worker only delays the release until
// the next sweep.
func (s *Service) runReserveSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReserveService == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.ReserveService.SweepMatured(reserveSweepBatchSize); err != nil {
			logger.Warnw("worker_reserve_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
