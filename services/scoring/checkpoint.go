package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

// AbilityCheckpoint is a versioned, read-only artifact mapping model ids to
// their latent ability vectors. It is replaced wholesale on reload and
// never mutated in place, keeping the scoring path free of write
// contention.
type AbilityCheckpoint struct {
	// Version identifies the training run that produced the checkpoint
	Version string `json:"version"`

	// Dimensions is the shared length of every ability vector
	Dimensions int `json:"dimensions"`

	// Abilities maps model id to its ability vector
	Abilities map[string][]float64 `json:"abilities"`
}

// validate rejects structurally broken checkpoints at load time
func (c *AbilityCheckpoint) validate() error {
	if c.Dimensions <= 0 {
		return services.WrapError(services.ErrorTypeConfig,
			"ability checkpoint declares no dimensions", nil)
	}
	for modelID, vec := range c.Abilities {
		if len(vec) != c.Dimensions {
			return services.WrapError(services.ErrorTypeConfig,
				fmt.Sprintf("ability vector for %s has %d dimensions, want %d",
					modelID, len(vec), c.Dimensions), nil)
		}
	}
	return nil
}

// AbilityStore holds the active checkpoint behind an atomic pointer so
// reloads swap the whole artifact without blocking concurrent scoring.
type AbilityStore struct {
	current atomic.Pointer[AbilityCheckpoint]
	logger  *zap.Logger
}

// NewAbilityStore creates an ability store preloaded with an empty
// checkpoint so scoring is valid (if penalized) before the first load.
func NewAbilityStore(logger *zap.Logger) *AbilityStore {
	s := &AbilityStore{logger: logger}
	s.current.Store(&AbilityCheckpoint{
		Version:    "empty",
		Dimensions: defaultDimensions,
		Abilities:  map[string][]float64{},
	})
	return s
}

// defaultDimensions is used until a checkpoint declares its own
const defaultDimensions = 8

// LoadFile reads, validates and swaps in a checkpoint from a JSON file
func (s *AbilityStore) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.WrapError(services.ErrorTypeConfig, "failed to read ability checkpoint", err)
	}
	return s.Load(data)
}

// Load parses, validates and swaps in a checkpoint from raw JSON
func (s *AbilityStore) Load(data []byte) error {
	var checkpoint AbilityCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return services.WrapError(services.ErrorTypeConfig, "failed to parse ability checkpoint", err)
	}
	if err := checkpoint.validate(); err != nil {
		return err
	}

	s.current.Store(&checkpoint)
	s.logger.Info("ability checkpoint loaded",
		zap.String("version", checkpoint.Version),
		zap.Int("dimensions", checkpoint.Dimensions),
		zap.Int("models", len(checkpoint.Abilities)))
	return nil
}

// Checkpoint returns the active checkpoint
func (s *AbilityStore) Checkpoint() *AbilityCheckpoint {
	return s.current.Load()
}

// Ability returns the ability vector for a model id and whether it was
// present in the checkpoint. Absent models get a zero vector; the engine
// applies the missing-data penalty.
func (s *AbilityStore) Ability(modelID string) ([]float64, bool) {
	checkpoint := s.current.Load()
	if vec, ok := checkpoint.Abilities[modelID]; ok {
		return vec, true
	}
	return make([]float64, checkpoint.Dimensions), false
}
