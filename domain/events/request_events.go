package events

import "time"

// Request lifecycle events published by the orchestrator. The core never
// surfaces notices itself; the host-facing layer decides what to show.

// RequestAccepted is raised when a submission passes pre-flight validation
type RequestAccepted struct {
	BaseEvent
	RequestID     string `json:"request_id"`
	TriggerNodeID string `json:"trigger_node_id"`
}

// NewRequestAccepted creates a RequestAccepted event
func NewRequestAccepted(requestID, triggerNodeID string, timestamp time.Time) RequestAccepted {
	return RequestAccepted{
		BaseEvent: BaseEvent{
			AggregateID: requestID,
			EventType:   "request.accepted",
			Timestamp:   timestamp,
		},
		RequestID:     requestID,
		TriggerNodeID: triggerNodeID,
	}
}

// RequestRejected is raised when pre-flight validation short-circuits a
// submission. No node has been created at this point; the only observable
// effect is this lightweight notice.
type RequestRejected struct {
	BaseEvent
	TriggerNodeID string `json:"trigger_node_id,omitempty"`
	Reason        string `json:"reason"`
}

// NewRequestRejected creates a RequestRejected event
func NewRequestRejected(triggerNodeID, reason string, timestamp time.Time) RequestRejected {
	return RequestRejected{
		BaseEvent: BaseEvent{
			AggregateID: triggerNodeID,
			EventType:   "request.rejected",
			Timestamp:   timestamp,
		},
		TriggerNodeID: triggerNodeID,
		Reason:        reason,
	}
}

// ResponseNodeCreated is raised once the placeholder node and its edge exist
type ResponseNodeCreated struct {
	BaseEvent
	RequestID      string `json:"request_id"`
	TriggerNodeID  string `json:"trigger_node_id"`
	ResponseNodeID string `json:"response_node_id"`
}

// NewResponseNodeCreated creates a ResponseNodeCreated event
func NewResponseNodeCreated(requestID, triggerNodeID, responseNodeID string, timestamp time.Time) ResponseNodeCreated {
	return ResponseNodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: requestID,
			EventType:   "request.node_created",
			Timestamp:   timestamp,
		},
		RequestID:      requestID,
		TriggerNodeID:  triggerNodeID,
		ResponseNodeID: responseNodeID,
	}
}

// CompletionChunk is raised for every streamed chunk applied to the
// response node, carrying the running total length rather than the text
// itself to keep the event feed light
type CompletionChunk struct {
	BaseEvent
	RequestID      string `json:"request_id"`
	ResponseNodeID string `json:"response_node_id"`
	ChunkSize      int    `json:"chunk_size"`
	TotalSize      int    `json:"total_size"`
}

// NewCompletionChunk creates a CompletionChunk event
func NewCompletionChunk(requestID, responseNodeID string, chunkSize, totalSize int, timestamp time.Time) CompletionChunk {
	return CompletionChunk{
		BaseEvent: BaseEvent{
			AggregateID: requestID,
			EventType:   "request.chunk",
			Timestamp:   timestamp,
		},
		RequestID:      requestID,
		ResponseNodeID: responseNodeID,
		ChunkSize:      chunkSize,
		TotalSize:      totalSize,
	}
}

// RequestSettled is raised exactly once per accepted request when it
// reaches a terminal state
type RequestSettled struct {
	BaseEvent
	RequestID      string `json:"request_id"`
	ResponseNodeID string `json:"response_node_id,omitempty"`
	Outcome        string `json:"outcome"` // success, failure, cancelled
	Detail         string `json:"detail,omitempty"`
}

// Settlement outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// NewRequestSettled creates a RequestSettled event
func NewRequestSettled(requestID, responseNodeID, outcome, detail string, timestamp time.Time) RequestSettled {
	return RequestSettled{
		BaseEvent: BaseEvent{
			AggregateID: requestID,
			EventType:   "request.settled",
			Timestamp:   timestamp,
		},
		RequestID:      requestID,
		ResponseNodeID: responseNodeID,
		Outcome:        outcome,
		Detail:         detail,
	}
}
