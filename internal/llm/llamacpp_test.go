package llm

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
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(ClientOptions{
		URL:            srv.URL,
		RequestTimeout: 5 * time.Second,
		HealthTimeout:  time.Second,
		LoadRetries:    3,
		LoadRetryDelay: 10 * time.Millisecond,
	})
	return c, srv
}

func TestClient_GenerateSendsParams(t *testing.T) {
	t.Parallel()

	var got completionRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/completion", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(completionResponse{
			Content:         "  fixed text  ",
			TokensPredicted: 12,
			TokensEvaluated: 34,
		})
	}))

	resp, err := c.Generate(context.Background(), Request{
		ID:            "req-1",
		Prompt:        "[INST] do the thing [/INST]",
		MaxTokens:     256,
		Temperature:   0.3,
		TopP:          0.9,
		TopK:          40,
		RepeatPenalty: 1.05,
		Stop:          []string{"[INST]", "</s>"},
	})
	require.NoError(t, err)

	assert.Equal(t, "[INST] do the thing [/INST]", got.Prompt)
	assert.Equal(t, 256, got.NPredict)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	assert.Equal(t, 40, got.TopK)
	assert.InDelta(t, 1.05, got.RepeatPenalty, 1e-9)
	assert.Equal(t, []string{"[INST]", "</s>"}, got.Stop)
	assert.False(t, got.Stream)

	assert.Equal(t, "  fixed text  ", resp.Text)
	assert.Equal(t, 12, resp.TokensPredicted)
	assert.Equal(t, 34, resp.TokensEvaluated)
}

func TestClient_GenerateServerError(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slot unavailable", http.StatusInternalServerError)
	}))

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "slot unavailable")
}

func TestClient_LoadRetriesUntilReady(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.False(t, c.Loaded())
	require.NoError(t, c.Load(context.Background()))
	assert.True(t, c.Loaded())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_LoadGivesUp(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 3 attempts")
	assert.False(t, c.Loaded())
}

func TestClient_LoadHonorsContext(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	c.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Load(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return after context cancel")
	}
	assert.False(t, c.Loaded())
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientOptions{URL: "http://127.0.0.1:8080/"})
	assert.Equal(t, "http://127.0.0.1:8080", c.baseURL)
	assert.Equal(t, 120*time.Second, c.http.Timeout)
	assert.Equal(t, 2*time.Second, c.healthTimeout)
	assert.Equal(t, 2*time.Second, c.retryDelay)
	assert.Equal(t, 1, c.loadRetries)
}
