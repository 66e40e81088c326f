package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

// Classifier labels a prompt with a domain/action pair. The router treats
// any error as a degradation signal and substitutes its fallback label.
type Classifier interface {
	Classify(ctx context.Context, prompt string, turns []string) (models.Classification, error)
}

// Config holds configuration for the HTTP classifier client
type Config struct {
	// BaseURL of the classification model service
	BaseURL string

	// Timeout bounds each classification call
	Timeout time.Duration

	// CacheTTL is how long a classification result may be reused
	CacheTTL time.Duration

	// CacheMaxCost is the ristretto cost budget in bytes
	CacheMaxCost int64
}

// DefaultConfig returns the default classifier configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      400 * time.Millisecond,
		CacheTTL:     30 * time.Second,
		CacheMaxCost: 4 << 20,
	}
}

// classifyRequest is the wire request to the classification service
type classifyRequest struct {
	Prompt  string   `json:"prompt"`
	Context []string `json:"context,omitempty"`
}

// classifyResponse is the wire response from the classification service
type classifyResponse struct {
	Domain     string  `json:"domain"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// HTTPClassifier calls an external classification model over HTTP with a
// bounded timeout and caches results briefly to keep repeat prompts off
// the network.
type HTTPClassifier struct {
	config     Config
	httpClient *http.Client
	cache      *ristretto.Cache[string, models.Classification]
	logger     *zap.Logger
}

// NewHTTPClassifier creates an HTTP classifier client
func NewHTTPClassifier(config Config, logger *zap.Logger) (*HTTPClassifier, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.CacheMaxCost == 0 {
		config.CacheMaxCost = DefaultConfig().CacheMaxCost
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, models.Classification]{
		NumCounters: config.CacheMaxCost / 100 * 10,
		MaxCost:     config.CacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to create classifier cache", err)
	}

	return &HTTPClassifier{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache,
		logger:     logger,
	}, nil
}

// Classify labels the prompt with a domain/action pair. Timeouts and
// malformed responses surface as classification errors; callers decide
// whether to degrade.
func (c *HTTPClassifier) Classify(ctx context.Context, prompt string, turns []string) (models.Classification, error) {
	key := cacheKey(prompt, turns)
	if cached, found := c.cache.Get(key); found {
		return cached, nil
	}

	reqBody, err := json.Marshal(classifyRequest{Prompt: prompt, Context: turns})
	if err != nil {
		return models.Classification{}, services.WrapInternal("failed to marshal classify request", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/classify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return models.Classification{}, services.WrapInternal("failed to create classify request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// Caller cancellation is not a classifier failure
			return models.Classification{}, services.WrapError(services.ErrorTypeCancelled, "classification cancelled", ctx.Err())
		}
		if isTimeout(err) {
			return models.Classification{}, services.WrapError(services.ErrorTypeClassification, "task classifier timed out", err)
		}
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification, "task classifier unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification, "failed to read classifier response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification,
			fmt.Sprintf("task classifier returned status %d", resp.StatusCode), nil)
	}

	var payload classifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification, "task classifier returned malformed response", err)
	}

	classification, err := payload.toClassification()
	if err != nil {
		return models.Classification{}, err
	}

	c.cache.SetWithTTL(key, classification, int64(len(body)), c.config.CacheTTL)
	return classification, nil
}

// Close releases the cache resources
func (c *HTTPClassifier) Close() {
	c.cache.Close()
}

// toClassification validates the wire payload and converts it
func (r *classifyResponse) toClassification() (models.Classification, error) {
	if r.Domain == "" {
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification,
			"task classifier returned empty domain", nil)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return models.Classification{}, services.WrapError(services.ErrorTypeClassification,
			fmt.Sprintf("task classifier returned confidence %v outside [0,1]", r.Confidence), nil)
	}

	return models.Classification{
		Domain:     r.Domain,
		Action:     r.Action,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
	}, nil
}

// cacheKey hashes the prompt and context into a stable cache key
func cacheKey(prompt string, turns []string) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	for _, turn := range turns {
		h.Write([]byte{0})
		h.Write([]byte(turn))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// isTimeout reports whether err is a client-side timeout
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
