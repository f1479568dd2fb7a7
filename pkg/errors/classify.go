package errors

import (
	"context"
	"errors"
	"strings"
)

// User-facing transport failure messages. The product surface is Chinese;
// these literals are what ends up in the response node on failure.
const (
	MsgNetworkUnreachable = "无法连接到 AI 服务"
	MsgTimeout            = "AI 响应超时"
	MsgInvalidKey         = "API 密钥无效或已过期"
	MsgRateLimited        = "请求频率超限，请稍后重试"
	MsgCancelled          = "请求已被取消"
	MsgGeneric            = "AI 请求失败，请稍后再试"

	errorNodeHeader = "❌ AI 请求失败"
	errorNodeHint   = "💡 请检查网络连接与 API 设置后重试"
)

// ClassifyTransportError maps a transport failure onto a human-readable
// message by matching recognized substrings of the collaborator's error.
// Classification is advisory only; it never changes retry behavior.
func ClassifyTransportError(err error) string {
	if err == nil {
		return MsgGeneric
	}

	if errors.Is(err, context.Canceled) {
		return MsgCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "econnrefused", "no such host", "network unreachable", "connection refused", "dial tcp"):
		return MsgNetworkUnreachable
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return MsgTimeout
	case containsAny(msg, "401", "unauthorized", "invalid api key", "invalid_api_key"):
		return MsgInvalidKey
	case containsAny(msg, "429", "rate limit", "too many requests"):
		return MsgRateLimited
	case containsAny(msg, "cancelled", "canceled", "aborted"):
		return MsgCancelled
	default:
		return MsgGeneric
	}
}

// ErrorNodeText formats the text written into a response node when its
// request fails: emoji-tagged header, classified message, fixed hint.
func ErrorNodeText(err error) string {
	return errorNodeHeader + "\n\n" + ClassifyTransportError(err) + "\n\n" + errorNodeHint
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
