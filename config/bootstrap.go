package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/upb/llm-router/models"
	"gopkg.in/yaml.v3"
)

// bootstrapFile is the YAML shape of the executor bootstrap file
type bootstrapFile struct {
	Executors []models.ExecutorDescriptor `yaml:"executors"`
}

// LoadBootstrapExecutors reads the statically configured executor list.
// A missing file is not an error: the registry then starts empty and
// fills from operator registrations.
func LoadBootstrapExecutors(path string) ([]models.ExecutorDescriptor, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read executor bootstrap %s: %w", path, err)
	}

	var file bootstrapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse executor bootstrap %s: %w", path, err)
	}

	return file.Executors, nil
}
