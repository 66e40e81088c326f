package executors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
)

const (
	listModelsSubcommand = "list-models"
	healthSubcommand     = "health"
)

// CLIClient probes an executor by invoking a subprocess. The executable is
// expected to print a JSON model list on stdout for the list-models
// subcommand and exit zero for the health subcommand.
type CLIClient struct {
	id      string
	command string
	args    []string
	timeout time.Duration
}

// NewCLIClient creates a subprocess probe client for the given descriptor
func NewCLIClient(descriptor models.ExecutorDescriptor, timeout time.Duration) *CLIClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &CLIClient{
		id:      descriptor.ID,
		command: descriptor.Command,
		args:    descriptor.Args,
		timeout: timeout,
	}
}

// ID returns the executor id this client probes
func (c *CLIClient) ID() string {
	return c.id
}

// ListModels queries the executor's current model list
func (c *CLIClient) ListModels(ctx context.Context) ([]models.Model, error) {
	stdout, err := c.run(ctx, listModelsSubcommand)
	if err != nil {
		return nil, err
	}

	var payload listModelsResponse
	if err := json.Unmarshal(stdout, &payload); err != nil {
		return nil, services.WrapExternal(
			fmt.Sprintf("failed to unmarshal model list from %s", c.id), err)
	}

	return payload.toModels(c.id), nil
}

// HealthCheck reports whether the executor is currently servable
func (c *CLIClient) HealthCheck(ctx context.Context) error {
	_, err := c.run(ctx, healthSubcommand)
	return err
}

// run executes the probe command with the given subcommand appended and
// returns its stdout. A non-zero exit or timeout is an external error.
func (c *CLIClient) run(ctx context.Context, subcommand string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, subcommand)

	cmd := exec.CommandContext(ctx, c.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, services.WrapExternal(
				fmt.Sprintf("probe subprocess for %s timed out after %v", c.id, c.timeout), err)
		}
		return nil, services.WrapExternal(
			fmt.Sprintf("probe subprocess for %s failed: %s", c.id, stderr.String()), err)
	}

	return stdout.Bytes(), nil
}
