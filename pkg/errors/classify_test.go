package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, MsgGeneric},
		{"context canceled", context.Canceled, MsgCancelled},
		{"wrapped context canceled", fmt.Errorf("stream: %w", context.Canceled), MsgCancelled},
		{"deadline exceeded", context.DeadlineExceeded, MsgTimeout},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), MsgNetworkUnreachable},
		{"no such host", errors.New("lookup api.example.com: no such host"), MsgNetworkUnreachable},
		{"read timeout", errors.New("read tcp: i/o timeout"), MsgTimeout},
		{"status 401", errors.New("completion API returned status 401: Unauthorized"), MsgInvalidKey},
		{"invalid api key", errors.New("invalid_api_key: check your credentials"), MsgInvalidKey},
		{"status 429", errors.New("completion API returned status 429: slow down"), MsgRateLimited},
		{"rate limit words", errors.New("rate limit exceeded, retry later"), MsgRateLimited},
		{"aborted", errors.New("request aborted by peer"), MsgCancelled},
		{"anything else", errors.New("weird upstream hiccup"), MsgGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTransportError(tc.err))
		})
	}
}

func TestErrorNodeText(t *testing.T) {
	text := ErrorNodeText(errors.New("completion API returned status 401: Unauthorized"))

	assert.Equal(t, "❌ AI 请求失败\n\nAPI 密钥无效或已过期\n\n💡 请检查网络连接与 API 设置后重试", text)
}

func TestAppError(t *testing.T) {
	t.Run("message includes kind, op and cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewNodeOperationError(OpConnect, "edge creation failed", cause)

		assert.Contains(t, err.Error(), "NODE_OPERATION_FAILED/connect")
		assert.Contains(t, err.Error(), "edge creation failed")
		assert.Contains(t, err.Error(), "root cause")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("kinds and retryability", func(t *testing.T) {
		assert.Equal(t, KindGraphUnavailable, KindOf(NewGraphUnavailableError()))
		assert.Equal(t, KindValidation, KindOf(NewValidationError("bad input")))
		assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

		assert.True(t, IsRetryable(NewNodeOperationError(OpCreate, "x", nil)))
		assert.False(t, IsRetryable(NewContextExtractionError(OpNodeContent, "x")))
		assert.False(t, IsRetryable(errors.New("plain")))
	})

	t.Run("wrapped app errors stay classifiable", func(t *testing.T) {
		inner := NewTransportError(errors.New("boom"))
		wrapped := fmt.Errorf("submit: %w", inner)

		assert.Equal(t, KindTransport, KindOf(wrapped))
	})

	t.Run("status codes", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, NewValidationError("x").StatusCode())
		assert.Equal(t, http.StatusConflict, NewGraphUnavailableError().StatusCode())
		assert.Equal(t, http.StatusUnprocessableEntity, NewContextExtractionError(OpContextBuild, "x").StatusCode())
		assert.Equal(t, http.StatusBadGateway, NewTransportError(nil).StatusCode())
	})
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("detached")
	err := NewContextExtractionError(OpConnectedNodes, "edge collection unavailable").WithCause(cause)

	require.ErrorIs(t, err, cause)
}
