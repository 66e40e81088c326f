package decisionlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/repositories"
	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

// Config holds configuration for the decision log
type Config struct {
	// BufferSize is the size of the record buffer channel
	BufferSize int

	// WorkerCount is the number of concurrent sink workers
	WorkerCount int

	// WriteTimeout bounds each sink write
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   10000,
		WorkerCount:  4,
		WriteTimeout: 5 * time.Second,
	}
}

// Service is the append-only decision log. Appends are fire-and-forget:
// the caller never blocks on the sink, and on overflow records are dropped
// with a warning rather than retried inline.
type Service struct {
	config     Config
	repo       repositories.DecisionRepository
	logger     *zap.Logger
	recordChan chan *models.DecisionRecord
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

// NewService creates a decision log service
func NewService(config Config, repo repositories.DecisionRepository, logger *zap.Logger) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &Service{
		config:     config,
		repo:       repo,
		logger:     logger,
		recordChan: make(chan *models.DecisionRecord, config.BufferSize),
	}
}

// Start starts the background sink workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("decision log already started")
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("decision log started",
		zap.Int("worker_count", s.config.WorkerCount),
		zap.Int("buffer_size", s.config.BufferSize))

	return nil
}

// Stop drains pending records and stops the workers, bounded by timeout
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("decision log not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping decision log", zap.Int("pending_records", len(s.recordChan)))
	close(s.recordChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("decision log stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("decision log stop timeout after %v", timeout)
	}
}

// Append queues a record for persistence. Non-blocking: when the buffer is
// full the record is dropped and an internal error returned so callers can
// count losses, but routing itself never fails on a full log.
func (s *Service) Append(record *models.DecisionRecord) error {
	// The lock spans the send so Append never races a Stop closing the
	// channel. The send itself is non-blocking.
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return services.WrapInternal("decision log not started", nil)
	}

	select {
	case s.recordChan <- record:
		return nil
	default:
		s.logger.Warn("decision log buffer full, dropping record",
			zap.String("decision_id", record.ID.String()),
			zap.String("selected_model", record.SelectedModel))
		return services.ErrDecisionLogFull
	}
}

// RecordOutcome back-fills the outcome of a decision exactly once. The
// repository enforces the outcome-is-null guard; a second write fails.
func (s *Service) RecordOutcome(ctx context.Context, id uuid.UUID, outcome models.DecisionOutcome) error {
	return s.repo.SetOutcome(ctx, id, outcome)
}

// worker drains the record channel into the repository
func (s *Service) worker(workerID int) {
	defer s.wg.Done()

	for record := range s.recordChan {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		if err := s.repo.Insert(ctx, record); err != nil {
			s.logger.Error("failed to persist decision record",
				zap.Int("worker_id", workerID),
				zap.String("decision_id", record.ID.String()),
				zap.Error(err))
		}
		cancel()
	}
}
