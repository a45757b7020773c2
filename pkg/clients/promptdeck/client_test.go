package promptdeck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ExecutePipeline(t *testing.T) {
	var (
		gotPath   string
		gotMethod string
		gotKey    string
		gotBody   ExecutePipelineRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ExecutePipelineResponse{
			Success:         true,
			Output:          map[string]any{"result": "done"},
			ExecutionTimeMS: 12,
			NodeResults: []NodeResult{
				{NodeID: "a", Type: "llm", Output: "Processed by llm node", DurationMS: 5},
			},
		}))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("pd_live_abc"),
	)

	result, err := client.ExecutePipeline(context.Background(), "summarize-x1", ExecutePipelineRequest{
		Input: map[string]any{"text": "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/public/pipelines/summarize-x1/execute", gotPath)
	assert.Equal(t, "pd_live_abc", gotKey)
	assert.Equal(t, map[string]any{"text": "hello"}, gotBody.Input)

	assert.True(t, result.Success)
	assert.Equal(t, "done", result.Output["result"])
	assert.Equal(t, int64(12), result.ExecutionTimeMS)
	require.Len(t, result.NodeResults, 1)
	assert.Equal(t, "a", result.NodeResults[0].NodeID)
}

func TestClient_ExecutePipelineContractFailure(t *testing.T) {
	// Unknown keys and unresolvable slugs are HTTP 200 with Success
	// false, never a Go error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ExecutePipelineResponse{
			Success: false,
			Output:  map[string]any{"error": "invalid API key"},
		}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("pd_live_wrong"))

	result, err := client.ExecutePipeline(context.Background(), "summarize-x1", ExecutePipelineRequest{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid API key", result.Output["error"])
	assert.Empty(t, result.NodeResults)
}

func TestClient_ValidateGraph(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/public/graphs/validate", r.URL.Path)

		var req ValidateGraphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Graph, "nodes")

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ValidateGraphResponse{
			Valid:  false,
			Errors: []string{"Pipeline graph contains cycles"},
		}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("pd_live_abc"))

	result, err := client.ValidateGraph(context.Background(), ValidateGraphRequest{
		Graph: map[string]any{"nodes": []any{}, "edges": []any{}},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"Pipeline graph contains cycles"}, result.Errors)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	hits := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "API key required"})
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetry(3, time.Millisecond),
	)

	_, err := client.ValidateGraph(context.Background(), ValidateGraphRequest{})
	require.Error(t, err)

	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "API key required", apiErr.Message)
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, apiErr.IsRetryable())

	assert.Equal(t, 1, hits)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	hits := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ValidateGraphResponse{Valid: true, Errors: []string{}}))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetry(2, time.Millisecond),
	)

	result, err := client.ValidateGraph(context.Background(), ValidateGraphRequest{
		Graph: map[string]any{"nodes": []any{}, "edges": []any{}},
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, hits)
}

func TestClient_RetriesExhausted(t *testing.T) {
	hits := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetry(2, time.Millisecond),
	)

	_, err := client.ValidateGraph(context.Background(), ValidateGraphRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, hits)
}
