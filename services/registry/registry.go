package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/executors"
	"go.uber.org/zap"
)

// Config holds configuration for the executor registry
type Config struct {
	// ProbeInterval is the period between probe sweeps
	ProbeInterval time.Duration

	// ProbeTimeout bounds each individual probe call
	ProbeTimeout time.Duration

	// EvictionGrace is how long an executor may stay unhealthy before it is
	// dropped from the registry entirely
	EvictionGrace time.Duration
}

// DefaultConfig returns the default registry configuration
func DefaultConfig() Config {
	return Config{
		ProbeInterval: 5 * time.Second,
		ProbeTimeout:  3 * time.Second,
		EvictionGrace: 60 * time.Second,
	}
}

// executorState is the registry's mutable record for one executor.
// Written only by Register/Deregister and the probe loop.
type executorState struct {
	descriptor    models.ExecutorDescriptor
	client        executors.Client
	models        []models.Model
	healthy       bool
	lastProbedAt  time.Time
	lastHealthyAt time.Time
}

// Registry tracks known executors and the models they expose. The probe
// loop is the only writer on the request path's data; readers consume
// immutable snapshots published through an atomic pointer swap.
type Registry struct {
	config   Config
	factory  *executors.Factory
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.RWMutex
	executors map[string]*executorState

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Int64
	pubMu    sync.Mutex

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	lifecMu sync.Mutex
}

// NewRegistry creates an executor registry
func NewRegistry(config Config, factory *executors.Factory, logger *zap.Logger) *Registry {
	r := &Registry{
		config:    config,
		factory:   factory,
		validate:  validator.New(),
		logger:    logger,
		executors: make(map[string]*executorState),
	}
	r.publishSnapshot()
	return r
}

// Register adds or updates an executor from its descriptor. A malformed
// descriptor fails with a config error and leaves the registry unchanged.
// The first probe runs asynchronously so registration never blocks on the
// executor itself.
func (r *Registry) Register(ctx context.Context, descriptor models.ExecutorDescriptor) error {
	if err := r.validate.Struct(descriptor); err != nil {
		return services.WrapError(services.ErrorTypeConfig, "malformed executor descriptor", err)
	}

	client, err := r.factory.NewClient(descriptor)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.executors[descriptor.ID] = &executorState{
		descriptor: descriptor,
		client:     client,
		// Anchor the eviction grace window at registration so an executor
		// that never turns healthy is still evicted eventually.
		lastHealthyAt: time.Now(),
	}
	r.mu.Unlock()
	r.publishSnapshot()

	r.logger.Info("executor registered",
		zap.String("executor_id", descriptor.ID),
		zap.String("transport", string(descriptor.Transport)))

	go r.probeOne(descriptor.ID)

	return nil
}

// Deregister removes an executor. Idempotent: deregistering an unknown id
// is a no-op.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	_, existed := r.executors[id]
	delete(r.executors, id)
	r.mu.Unlock()

	if existed {
		r.publishSnapshot()
		r.logger.Info("executor deregistered", zap.String("executor_id", id))
	}
}

// Executors returns the current status of all registered executors
func (r *Registry) Executors() []models.ExecutorStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]models.ExecutorStatus, 0, len(r.executors))
	for _, state := range r.executors {
		statuses = append(statuses, models.ExecutorStatus{
			Descriptor:    state.descriptor,
			Healthy:       state.healthy,
			LastProbedAt:  state.lastProbedAt,
			LastHealthyAt: state.lastHealthyAt,
			ModelCount:    len(state.models),
		})
	}
	return statuses
}

// Start launches the background probe loop
func (r *Registry) Start() {
	r.lifecMu.Lock()
	defer r.lifecMu.Unlock()

	if r.started {
		return
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.started = true

	go r.probeLoop()

	r.logger.Info("executor probe loop started",
		zap.Duration("interval", r.config.ProbeInterval))
}

// Stop terminates the probe loop and waits for it to exit
func (r *Registry) Stop() {
	r.lifecMu.Lock()
	defer r.lifecMu.Unlock()

	if !r.started {
		return
	}
	close(r.stopCh)
	<-r.doneCh
	r.started = false

	r.logger.Info("executor probe loop stopped")
}

// probeLoop sweeps all executors on the configured interval
func (r *Registry) probeLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.ProbeAll()
		case <-r.stopCh:
			return
		}
	}
}

// ProbeAll probes every registered executor once and republishes the
// snapshot. Exposed so tests and the readiness probe can force a sweep.
func (r *Registry) ProbeAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.executors))
	for id := range r.executors {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.probeOne(id)
	}
}

// probeOne probes a single executor and folds the result into its state.
// A failed probe clears health but retains the last-known model list;
// eviction happens only after the grace period of sustained failure.
func (r *Registry) probeOne(id string) {
	r.mu.RLock()
	state, exists := r.executors[id]
	r.mu.RUnlock()
	if !exists {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.ProbeTimeout)
	defer cancel()

	now := time.Now()
	healthErr := state.client.HealthCheck(ctx)

	var probed []models.Model
	var listErr error
	if healthErr == nil {
		probed, listErr = state.client.ListModels(ctx)
	}

	r.mu.Lock()
	// Re-check: the executor may have been deregistered during the probe
	state, exists = r.executors[id]
	if !exists {
		r.mu.Unlock()
		return
	}

	state.lastProbedAt = now

	switch {
	case healthErr != nil || listErr != nil:
		state.healthy = false
		if now.Sub(state.lastHealthyAt) > r.config.EvictionGrace {
			delete(r.executors, id)
			r.mu.Unlock()
			r.publishSnapshot()
			r.logger.Warn("executor evicted after sustained probe failure",
				zap.String("executor_id", id),
				zap.Duration("grace", r.config.EvictionGrace))
			return
		}
	default:
		state.healthy = true
		state.lastHealthyAt = now
		state.models = probed
	}
	r.mu.Unlock()
	r.publishSnapshot()

	if healthErr != nil {
		r.logger.Warn("executor probe failed",
			zap.String("executor_id", id),
			zap.Error(healthErr))
	} else if listErr != nil {
		r.logger.Warn("executor model list probe failed",
			zap.String("executor_id", id),
			zap.Error(listErr))
	}
}
