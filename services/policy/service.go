package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/repositories"
	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

// Config holds configuration for the policy store
type Config struct {
	// CacheSize bounds the number of cached resolutions
	CacheSize int

	// CacheTTL is the freshness window for cached resolutions
	CacheTTL time.Duration

	// FetchTimeout bounds each repository fetch on the hot path
	FetchTimeout time.Duration
}

// DefaultConfig returns the default policy store configuration
func DefaultConfig() Config {
	return Config{
		CacheSize:    1024,
		CacheTTL:     30 * time.Second,
		FetchTimeout: 500 * time.Millisecond,
	}
}

// Store resolves (domain, action) pairs to ordered candidate model lists.
// Reads are fronted by a TTL cache that serves the last good value when
// the backing repository is unavailable; resolution fails only when no
// cached value was ever loaded.
type Store struct {
	config Config
	repo   repositories.PolicyRepository
	cache  *Cache
	logger *zap.Logger
}

// NewStore creates a policy store
func NewStore(config Config, repo repositories.PolicyRepository, logger *zap.Logger) *Store {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultConfig().CacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultConfig().FetchTimeout
	}

	return &Store{
		config: config,
		repo:   repo,
		cache:  NewCache(config.CacheSize, config.CacheTTL),
		logger: logger,
	}
}

// GetCandidates resolves the ordered candidate model list for a
// classification, most specific match first: exact (domain, action), then
// the domain's wildcard action, then the global default, then empty.
func (s *Store) GetCandidates(ctx context.Context, domain, action string) ([]string, error) {
	key := CacheKey{Domain: domain, Action: action}

	if candidates, fresh, ok := s.cache.Get(key); ok && fresh {
		return candidates, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	candidates, err := s.resolve(fetchCtx, domain, action)
	if err != nil {
		// A caller cancellation is never masked by the cache: the request is
		// abandoned, so no value (stale or otherwise) may be served.
		if ctx.Err() != nil {
			return nil, services.WrapError(services.ErrorTypeCancelled, "policy fetch cancelled", ctx.Err())
		}
		// Serve the last good value when the store is down
		if stale, _, ok := s.cache.Get(key); ok {
			s.logger.Warn("policy store unavailable, serving stale candidates",
				zap.String("domain", domain),
				zap.String("action", action),
				zap.Error(err))
			return stale, nil
		}
		return nil, services.WrapError(services.ErrorTypePolicyUnavailable,
			"policy store unavailable and no cached value", err)
	}

	s.cache.Set(key, candidates)
	return candidates, nil
}

// resolve walks the specificity chain against the repository
func (s *Store) resolve(ctx context.Context, domain, action string) ([]string, error) {
	lookups := [][2]string{
		{domain, action},
		{domain, models.Wildcard},
		{models.Wildcard, models.Wildcard},
	}

	for _, pair := range lookups {
		p, err := s.repo.GetByDomainAction(ctx, pair[0], pair[1])
		if err != nil {
			if services.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if p.Enabled {
			return p.Models, nil
		}
	}

	// No matching policy: an empty candidate list, not an error
	return nil, nil
}

// CacheStats exposes cache statistics for observability endpoints
func (s *Store) CacheStats() CacheStats {
	return s.cache.Stats()
}

// The CRUD surface below is operator tooling, off the routing hot path.
// Every mutation invalidates the affected cache entries.

// Create stores a new routing policy
func (s *Store) Create(ctx context.Context, p *models.RoutingPolicy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	s.cache.Invalidate(p.Domain, p.Action)
	s.logger.Info("routing policy created",
		zap.String("policy_id", p.ID.String()),
		zap.String("domain", p.Domain),
		zap.String("action", p.Action))
	return nil
}

// Update replaces an existing routing policy
func (s *Store) Update(ctx context.Context, p *models.RoutingPolicy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	s.cache.Invalidate(p.Domain, p.Action)
	s.logger.Info("routing policy updated", zap.String("policy_id", p.ID.String()))
	return nil
}

// Delete removes a routing policy
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(p.Domain, p.Action)
	s.logger.Info("routing policy deleted", zap.String("policy_id", id.String()))
	return nil
}

// Get returns a routing policy by id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.RoutingPolicy, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all routing policies
func (s *Store) List(ctx context.Context) ([]*models.RoutingPolicy, error) {
	return s.repo.List(ctx)
}

// validatePolicy rejects structurally invalid policies before they reach
// the repository
func validatePolicy(p *models.RoutingPolicy) error {
	if p == nil {
		return services.ErrInvalidPolicy
	}
	if p.Domain == "" || p.Action == "" {
		return services.WrapError(services.ErrorTypeValidation, "policy domain and action are required", nil)
	}
	if len(p.Models) == 0 {
		return services.WrapError(services.ErrorTypeValidation, "policy must list at least one candidate model", nil)
	}
	return nil
}
