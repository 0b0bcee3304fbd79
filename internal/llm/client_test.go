package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	}, nil)
}

func TestComplete_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "the answer"}},
			},
		})
	})

	text, err := client.Complete(context.Background(), &GenerationRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "question"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	})

	_, err := client.Complete(context.Background(), &GenerationRequest{Model: "test-model"})
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusTooManyRequests, provErr.Status)
	assert.Contains(t, provErr.Body, "rate limited")
}

func TestComplete_EmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), &GenerationRequest{Model: "test-model"})
	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Zero(t, provErr.Status)
}

func TestComplete_TransportFailure(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0"}, nil)

	_, err := client.Complete(context.Background(), &GenerationRequest{Model: "test-model"})
	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
}

func TestCompleteStream_AccumulatesAndSkipsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			`data: {not valid json`,
			``,
			`data: {"choices":[{"delta":{"content":", "}}]}`,
			`: comment line`,
			`data: {"choices":[{"delta":{"content":"world"}}]}`,
			`data: [DONE]`,
		}
		for _, f := range frames {
			_, _ = w.Write([]byte(f + "\n"))
		}
	})

	var chunks []string
	text, err := client.CompleteStream(context.Background(), &GenerationRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "question"}},
	}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text)
	assert.Equal(t, []string{"Hello", ", ", "world"}, chunks)
}

func TestCompleteStream_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.CompleteStream(context.Background(), &GenerationRequest{Model: "test-model"}, nil)
	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusBadGateway, provErr.Status)
}

func TestEmbed_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "some text", req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.1, 0.2, 0.3}},
			},
		})
	})

	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbed_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := client.Embed(context.Background(), "some text")
	var embErr *EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, http.StatusInternalServerError, embErr.Status)
}

func TestEmbed_EmptyVector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	_, err := client.Embed(context.Background(), "some text")
	var embErr *EmbeddingError
	require.True(t, errors.As(err, &embErr))
}

func TestComplete_HonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "late"}},
			},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, &GenerationRequest{Model: "test-model"})
	require.Error(t, err)
}
