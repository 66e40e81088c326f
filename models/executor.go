package models

import (
	"time"
)

// TransportKind identifies how an executor is probed
type TransportKind string

const (
	// TransportHTTP probes the executor over its HTTP API
	TransportHTTP TransportKind = "http"

	// TransportCLI probes the executor through a subprocess invocation
	TransportCLI TransportKind = "cli"
)

// ExecutorDescriptor describes an executor as submitted at registration time
type ExecutorDescriptor struct {
	// ID uniquely identifies the executor (e.g., "openai-us-east")
	ID string `json:"id" yaml:"id" validate:"required"`

	// Transport selects the probe adapter
	Transport TransportKind `json:"transport" yaml:"transport" validate:"required,oneof=http cli"`

	// Endpoint is the base URL for HTTP executors
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint" validate:"required_if=Transport http,omitempty,url"`

	// Command is the executable invoked for CLI executors
	Command string `json:"command,omitempty" yaml:"command" validate:"required_if=Transport cli"`

	// Args are additional arguments passed before the probe subcommand
	Args []string `json:"args,omitempty" yaml:"args"`

	// Capabilities are free-form tags declared by the operator
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
}

// ExecutorStatus reflects the registry's view of an executor
type ExecutorStatus struct {
	Descriptor    ExecutorDescriptor `json:"descriptor"`
	Healthy       bool               `json:"healthy"`
	LastProbedAt  time.Time          `json:"last_probed_at"`
	LastHealthyAt time.Time          `json:"last_healthy_at"`
	ModelCount    int                `json:"model_count"`
}

// Model represents one model exposed by an executor.
// Health and cost are refreshed only by the owning executor's probe.
type Model struct {
	// ID is the model identifier used in policies (e.g., "gpt-4")
	ID string `json:"id"`

	// ExecutorID is the owning executor
	ExecutorID string `json:"executor_id"`

	// DisplayName is the human-readable name
	DisplayName string `json:"display_name,omitempty"`

	// CostPerMillionTokens is the blended serving cost in USD
	CostPerMillionTokens float64 `json:"cost_per_million_tokens"`

	// ContextWindow is the maximum context size in tokens
	ContextWindow int `json:"context_window"`

	// Capabilities are capability tags (e.g., "code", "vision", "tools")
	Capabilities []string `json:"capabilities,omitempty"`

	// Healthy indicates the model is currently servable
	Healthy bool `json:"healthy"`
}
