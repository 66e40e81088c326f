package executors

import (
	"fmt"
	"time"

	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
)

// Factory builds probe clients from executor descriptors
type Factory struct {
	probeTimeout time.Duration
}

// NewFactory creates a client factory with the given per-probe timeout
func NewFactory(probeTimeout time.Duration) *Factory {
	return &Factory{probeTimeout: probeTimeout}
}

// NewClient constructs the transport adapter matching the descriptor.
// An unknown transport is a config error fatal only to this registration.
func (f *Factory) NewClient(descriptor models.ExecutorDescriptor) (Client, error) {
	switch descriptor.Transport {
	case models.TransportHTTP:
		return NewHTTPClient(descriptor, f.probeTimeout), nil
	case models.TransportCLI:
		return NewCLIClient(descriptor, f.probeTimeout), nil
	default:
		return nil, services.NewDomainError(services.ErrorTypeConfig,
			fmt.Sprintf("unknown executor transport %q", descriptor.Transport), nil)
	}
}
