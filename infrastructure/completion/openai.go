package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"canvasflow/application/ports"
)

// OpenAITransport talks to an OpenAI-compatible chat completions endpoint.
// Streaming requests are delivered over SSE; the final response content is
// the accumulation of the deltas observed on the wire. A circuit breaker
// guards the upstream so a flapping provider fails fast instead of piling
// up in-flight requests.
type OpenAITransport struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// Config holds the transport settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatChoice struct {
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *apiError    `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAITransport(cfg Config, logger *zap.Logger) *OpenAITransport {
	t := &OpenAITransport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}

	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "completion-api",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller-initiated cancellation says nothing about upstream health
			if errors.Is(err, context.Canceled) {
				return true
			}
			return err == nil
		},
	})

	return t
}

// Complete sends a chat completion request. When req.Stream is set, deltas
// are forwarded to req.OnStream as they arrive.
func (t *OpenAITransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	result, err := t.breaker.Execute(func() (any, error) {
		return t.complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("completion service unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*ports.CompletionResponse), nil
}

func (t *OpenAITransport) complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if t.apiKey == "" {
		return nil, errors.New("completion API key not configured: 401 unauthorized")
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.Context) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Context})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:    t.model,
		Messages: messages,
		Stream:   req.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	started := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		t.logger.Warn("Completion API rejected request",
			zap.String("request_id", req.ID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result *ports.CompletionResponse
	if req.Stream {
		result, err = t.readStream(ctx, resp.Body, req)
	} else {
		result, err = t.readSingle(resp.Body)
	}
	if err != nil {
		return nil, err
	}

	result.ID = req.ID
	result.Timestamp = time.Now()
	if result.Model == "" {
		result.Model = t.model
	}

	t.logger.Debug("Completion finished",
		zap.String("request_id", req.ID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("content_len", len(result.Content)),
	)
	return result, nil
}

func (t *OpenAITransport) readSingle(body io.Reader) (*ports.CompletionResponse, error) {
	var decoded chatResponse
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("completion API error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil {
		return nil, errors.New("completion response contained no choices")
	}

	result := &ports.CompletionResponse{
		Content:      decoded.Choices[0].Message.Content,
		Model:        decoded.Model,
		FinishReason: decoded.Choices[0].FinishReason,
	}
	if decoded.Usage != nil {
		result.TokensUsed = decoded.Usage.TotalTokens
	}
	return result, nil
}

// readStream consumes SSE events until [DONE] or stream end. Each content
// delta is forwarded to the caller's OnStream before being accumulated.
func (t *OpenAITransport) readStream(ctx context.Context, body io.Reader, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var content strings.Builder
	result := &ports.CompletionResponse{}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("completion API error: %s", chunk.Error.Message)
		}
		if chunk.Model != "" {
			result.Model = chunk.Model
		}
		if chunk.Usage != nil {
			result.TokensUsed = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			result.FinishReason = choice.FinishReason
		}
		if choice.Delta == nil || choice.Delta.Content == "" {
			continue
		}

		content.WriteString(choice.Delta.Content)
		if req.OnStream != nil {
			req.OnStream(choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("completion stream interrupted: %w", err)
	}

	result.Content = content.String()
	return result, nil
}
