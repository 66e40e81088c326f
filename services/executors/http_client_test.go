package executors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
)

func httpDescriptor(endpoint string) models.ExecutorDescriptor {
	return models.ExecutorDescriptor{
		ID:        "exec-1",
		Transport: models.TransportHTTP,
		Endpoint:  endpoint,
	}
}

func TestHTTPClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"models": [
				{"id": "gpt-4", "cost_per_million_tokens": 30, "context_window": 128000, "capabilities": ["code"]},
				{"id": "gpt-4-mini", "cost_per_million_tokens": 1.5, "context_window": 128000, "healthy": false},
				{"id": "", "cost_per_million_tokens": 1}
			]
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(httpDescriptor(server.URL), time.Second)
	assert.Equal(t, "exec-1", client.ID())

	probed, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, probed, 2, "entries without an id are dropped")

	assert.Equal(t, "gpt-4", probed[0].ID)
	assert.Equal(t, "exec-1", probed[0].ExecutorID)
	assert.Equal(t, 30.0, probed[0].CostPerMillionTokens)
	assert.True(t, probed[0].Healthy, "omitted healthy flag defaults to true")

	assert.Equal(t, "gpt-4-mini", probed[1].ID)
	assert.False(t, probed[1].Healthy)
}

func TestHTTPClient_ListModels_Errors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewHTTPClient(httpDescriptor(server.URL), time.Second)
		_, err := client.ListModels(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{broken`))
		}))
		defer server.Close()

		client := NewHTTPClient(httpDescriptor(server.URL), time.Second)
		_, err := client.ListModels(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		client := NewHTTPClient(httpDescriptor("http://127.0.0.1:1"), time.Second)
		_, err := client.ListModels(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/healthz", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(httpDescriptor(server.URL), time.Second)
		assert.NoError(t, client.HealthCheck(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewHTTPClient(httpDescriptor(server.URL), time.Second)
		err := client.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})
}

func TestFactory_NewClient(t *testing.T) {
	factory := NewFactory(time.Second)

	t.Run("http transport", func(t *testing.T) {
		client, err := factory.NewClient(httpDescriptor("http://localhost:9000"))
		require.NoError(t, err)
		assert.IsType(t, &HTTPClient{}, client)
	})

	t.Run("cli transport", func(t *testing.T) {
		client, err := factory.NewClient(models.ExecutorDescriptor{
			ID:        "local-llama",
			Transport: models.TransportCLI,
			Command:   "/usr/local/bin/llama-probe",
		})
		require.NoError(t, err)
		assert.IsType(t, &CLIClient{}, client)
		assert.Equal(t, "local-llama", client.ID())
	})

	t.Run("unknown transport", func(t *testing.T) {
		_, err := factory.NewClient(models.ExecutorDescriptor{ID: "x", Transport: "grpc"})
		require.Error(t, err)
		assert.True(t, services.IsConfigError(err))
	})
}

func TestCLIClient_Probes(t *testing.T) {
	descriptor := models.ExecutorDescriptor{
		ID:        "script-exec",
		Transport: models.TransportCLI,
		Command:   "/bin/sh",
	}

	t.Run("list models via script", func(t *testing.T) {
		d := descriptor
		d.Args = []string{"-c", `echo '{"models":[{"id":"local-7b","cost_per_million_tokens":0}]}' #`}

		client := NewCLIClient(d, time.Second)
		probed, err := client.ListModels(context.Background())
		require.NoError(t, err)
		require.Len(t, probed, 1)
		assert.Equal(t, "local-7b", probed[0].ID)
		assert.Equal(t, "script-exec", probed[0].ExecutorID)
	})

	t.Run("health via exit code", func(t *testing.T) {
		d := descriptor
		d.Args = []string{"-c", "exit 0"}
		assert.NoError(t, NewCLIClient(d, time.Second).HealthCheck(context.Background()))

		d.Args = []string{"-c", "exit 3"}
		err := NewCLIClient(d, time.Second).HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})

	t.Run("timeout", func(t *testing.T) {
		d := descriptor
		d.Args = []string{"-c", "sleep 5"}

		client := NewCLIClient(d, 50*time.Millisecond)
		err := client.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, services.ErrorTypeExternal, services.GetErrorType(err))
	})
}
