package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

func newTestClassifier(t *testing.T, baseURL string, timeout time.Duration) *HTTPClassifier {
	t.Helper()

	c, err := NewHTTPClassifier(Config{
		BaseURL: baseURL,
		Timeout: timeout,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify", r.URL.Path)

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Prompt)

		_ = json.NewEncoder(w).Encode(classifyResponse{
			Domain:     "programming",
			Action:     "code-generation",
			Confidence: 0.93,
			Reasoning:  "code fence present",
		})
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL, time.Second)

	classification, err := c.Classify(context.Background(), "write a quicksort in Go", nil)
	require.NoError(t, err)
	assert.Equal(t, "programming", classification.Domain)
	assert.Equal(t, "code-generation", classification.Action)
	assert.InDelta(t, 0.93, classification.Confidence, 1e-9)
	assert.False(t, classification.Fallback)
}

func TestHTTPClassifier_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL, 30*time.Millisecond)

	_, err := c.Classify(context.Background(), "slow prompt", nil)
	require.Error(t, err)
	assert.True(t, services.IsClassificationError(err))
}

func TestHTTPClassifier_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Classify(ctx, "cancelled prompt", nil)
	require.Error(t, err)
	assert.True(t, services.IsCancelledError(err))
}

func TestHTTPClassifier_MalformedResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"invalid json", http.StatusOK, `{not json`},
		{"empty domain", http.StatusOK, `{"domain": "", "action": "x", "confidence": 0.5}`},
		{"confidence above one", http.StatusOK, `{"domain": "general", "confidence": 1.5}`},
		{"negative confidence", http.StatusOK, `{"domain": "general", "confidence": -0.1}`},
		{"server error", http.StatusInternalServerError, `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c := newTestClassifier(t, server.URL, time.Second)

			_, err := c.Classify(context.Background(), "prompt", nil)
			require.Error(t, err)
			assert.True(t, services.IsClassificationError(err))
		})
	}
}

func TestHTTPClassifier_Unreachable(t *testing.T) {
	c := newTestClassifier(t, "http://127.0.0.1:1", time.Second)

	_, err := c.Classify(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.True(t, services.IsClassificationError(err))
}

func TestHTTPClassifier_CachesResults(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(classifyResponse{Domain: "general", Confidence: 0.6})
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL, time.Second)

	ctx := context.Background()
	_, err := c.Classify(ctx, "repeat prompt", []string{"turn"})
	require.NoError(t, err)

	// Ristretto applies writes asynchronously
	require.Eventually(t, func() bool {
		_, found := c.cache.Get(cacheKey("repeat prompt", []string{"turn"}))
		return found
	}, time.Second, 5*time.Millisecond)

	_, err = c.Classify(ctx, "repeat prompt", []string{"turn"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCacheKey_ContextSensitive(t *testing.T) {
	assert.NotEqual(t, cacheKey("p", nil), cacheKey("p", []string{"turn"}))
	assert.NotEqual(t, cacheKey("p", []string{"a", "b"}), cacheKey("p", []string{"ab"}))
	assert.Equal(t, cacheKey("p", []string{"a"}), cacheKey("p", []string{"a"}))
}
