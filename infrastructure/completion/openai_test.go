package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canvasflow/application/ports"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc) (*OpenAITransport, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	transport := NewOpenAITransport(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	return transport, server
}

func sseHandler(t *testing.T, lines []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestOpenAITransport_Complete_Streaming(t *testing.T) {
	transport, _ := newTestTransport(t, sseHandler(t, []string{
		`{"id":"c1","model":"test-model","choices":[{"delta":{"content":"Hello"}}]}`,
		`{"id":"c1","choices":[{"delta":{"content":" world"}}]}`,
		`{"id":"c1","choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`,
	}))

	var chunks []string
	resp, err := transport.Complete(context.Background(), ports.CompletionRequest{
		ID:      "ai-req-1",
		Context: "some context",
		Prompt:  "say hello",
		Stream:  true,
		OnStream: func(chunk string) {
			chunks = append(chunks, chunk)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, chunks)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "ai-req-1", resp.ID)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestOpenAITransport_Complete_SystemMessageFromContext(t *testing.T) {
	var got chatRequest
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	_, err := transport.Complete(context.Background(), ports.CompletionRequest{
		ID:      "ai-req-2",
		Context: "当前节点内容:\nhello",
		Prompt:  "expand this",
		Stream:  true,
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "当前节点内容:\nhello", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "expand this", got.Messages[1].Content)
}

func TestOpenAITransport_Complete_NonStreaming(t *testing.T) {
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c2","model":"test-model","choices":[{"message":{"role":"assistant","content":"full answer"},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`)
	})

	resp, err := transport.Complete(context.Background(), ports.CompletionRequest{
		ID:     "ai-req-3",
		Prompt: "question",
	})

	require.NoError(t, err)
	assert.Equal(t, "full answer", resp.Content)
	assert.Equal(t, 7, resp.TokensUsed)
}

func TestOpenAITransport_Complete_StatusErrorsCarryCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := transport.Complete(context.Background(), ports.CompletionRequest{
				ID:     "ai-req-4",
				Prompt: "q",
				Stream: true,
			})

			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("%d", tc.status))
		})
	}
}

func TestOpenAITransport_Complete_MidStreamError(t *testing.T) {
	transport, _ := newTestTransport(t, sseHandler(t, []string{
		`{"choices":[{"delta":{"content":"partial"}}]}`,
		`{"error":{"message":"model overloaded"}}`,
	}))

	_, err := transport.Complete(context.Background(), ports.CompletionRequest{
		ID:     "ai-req-5",
		Prompt: "q",
		Stream: true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOpenAITransport_Complete_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := transport.Complete(ctx, ports.CompletionRequest{
			ID:     "ai-req-6",
			Prompt: "q",
			Stream: true,
		})
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled stream never returned")
	}
}

func TestOpenAITransport_Complete_MissingKey(t *testing.T) {
	transport := NewOpenAITransport(Config{
		BaseURL: "http://127.0.0.1:0",
		Model:   "test-model",
		Timeout: time.Second,
	}, zap.NewNop())

	_, err := transport.Complete(context.Background(), ports.CompletionRequest{ID: "ai-req-7", Prompt: "q"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
