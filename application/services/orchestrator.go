package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"canvasflow/application/ports"
	domaincfg "canvasflow/domain/config"
	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
	"canvasflow/domain/events"
	pkgerrors "canvasflow/pkg/errors"
	"canvasflow/pkg/observability"
)

// inflightRequest is the ephemeral per-submission entity: the orchestrator
// is its sole owner, so teardown only needs to signal cancellation and
// drop the reference.
type inflightRequest struct {
	id             valueobjects.RequestID
	triggerNodeID  string
	responseNodeID string
	startedAt      time.Time
	cancelled      atomic.Bool
	cancel         context.CancelFunc
	accumulated    strings.Builder
}

// RequestInfo is the externally visible shape of an in-flight request
type RequestInfo struct {
	ID             string    `json:"id"`
	TriggerNodeID  string    `json:"trigger_node_id"`
	ResponseNodeID string    `json:"response_node_id"`
	StartedAt      time.Time `json:"started_at"`
}

// Orchestrator owns the set of in-flight completion requests. Per request
// it extracts context, creates the placeholder response node and its edge,
// streams the completion into the node, and settles with the final content
// or a classified error block. One failing request never aborts a sibling.
type Orchestrator struct {
	extractor *ContextExtractor
	mutator   *NodeMutator
	transport ports.CompletionTransport
	publisher ports.EventPublisher
	cfg       *domaincfg.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	inflight map[string]*inflightRequest
	wg       sync.WaitGroup
}

// NewOrchestrator creates a request orchestrator
func NewOrchestrator(
	extractor *ContextExtractor,
	mutator *NodeMutator,
	transport ports.CompletionTransport,
	publisher ports.EventPublisher,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	if cfg == nil {
		cfg = domaincfg.DefaultDomainConfig()
	}
	return &Orchestrator{
		extractor: extractor,
		mutator:   mutator,
		transport: transport,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		inflight:  make(map[string]*inflightRequest),
	}
}

// Submit runs pre-flight validation, builds context, creates the
// placeholder node and edge, then streams the completion asynchronously.
// It returns the request id once the placeholder is visible. Pre-flight
// failures return an error and publish a notice; no node is created and
// the transport is never invoked for them.
func (o *Orchestrator) Submit(ctx context.Context, graph ports.GraphView, trigger *entities.Node, prompt string, includeRelated bool) (string, error) {
	if graph == nil {
		o.notifyRejected(ctx, "", "no active canvas graph view")
		return "", pkgerrors.NewGraphUnavailableError()
	}
	if trigger == nil {
		o.notifyRejected(ctx, "", "trigger node unavailable")
		return "", pkgerrors.NewValidationError("trigger node unavailable")
	}
	if strings.TrimSpace(prompt) == "" {
		o.notifyRejected(ctx, trigger.ID(), "prompt is empty")
		return "", pkgerrors.NewValidationError("prompt cannot be empty")
	}
	if o.cfg.MaxPromptLength > 0 && len(prompt) > o.cfg.MaxPromptLength {
		o.notifyRejected(ctx, trigger.ID(), "prompt exceeds maximum length")
		return "", pkgerrors.NewValidationError("prompt exceeds maximum length")
	}

	requestID := valueobjects.NewRequestID()
	o.publish(ctx, events.NewRequestAccepted(requestID.String(), trigger.ID(), time.Now()))

	// Context extraction happens before node creation; a failure here is
	// still surfaced as a visible error node rather than raised.
	contextText, extractErr := o.buildContext(graph, trigger, includeRelated)

	position := o.mutator.CalculateNodePosition(trigger, o.cfg.ResponseOffsetX, o.cfg.ResponseOffsetY)
	size := valueobjects.NewSize(o.cfg.ResponseNodeWidth, o.cfg.ResponseNodeHeight)

	responseNode, err := o.mutator.CreateTextNode(ctx, graph, o.cfg.LoadingText, position, size)
	if err != nil {
		// Nothing visible exists to carry an error block; the event feed
		// and log are the only observers.
		o.logger.Error("Response node creation failed",
			zap.String("requestID", requestID.String()),
			zap.String("triggerNodeID", trigger.ID()),
			zap.Error(err),
		)
		o.publish(ctx, events.NewRequestSettled(requestID.String(), "", events.OutcomeFailure, err.Error(), time.Now()))
		o.countSettled(events.OutcomeFailure)
		return "", err
	}

	if err := o.mutator.CreateEdge(ctx, graph, trigger, responseNode.Node(), o.cfg.EdgeLabel); err != nil {
		// The edge is presentational; the completion still runs. Both
		// fallback tiers already logged their reasons.
		o.logger.Warn("Edge creation failed, continuing without connector",
			zap.String("requestID", requestID.String()),
			zap.Error(err),
		)
	}

	o.publish(ctx, events.NewResponseNodeCreated(requestID.String(), trigger.ID(), responseNode.ID(), time.Now()))

	req := &inflightRequest{
		id:             requestID,
		triggerNodeID:  trigger.ID(),
		responseNodeID: responseNode.ID(),
		startedAt:      time.Now(),
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	req.cancel = cancel

	o.mu.Lock()
	o.inflight[requestID.String()] = req
	o.mu.Unlock()
	o.gaugeInflight(1)

	if extractErr != nil {
		// Settle immediately: the request never reaches the transport.
		o.logger.Error("Context extraction failed",
			zap.String("requestID", requestID.String()),
			zap.Error(extractErr),
		)
		cancel()
		o.settleFailure(graph, responseNode, req, extractErr)
		return requestID.String(), nil
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.stream(streamCtx, graph, req, responseNode, contextText, prompt)
	}()

	return requestID.String(), nil
}

// buildContext selects the single-node or neighborhood extraction
func (o *Orchestrator) buildContext(graph ports.GraphView, trigger *entities.Node, includeRelated bool) (string, error) {
	if !includeRelated {
		return o.extractor.ExtractCurrentNodeContext(trigger)
	}
	related, err := o.extractor.ExtractRelatedNodesContext(graph, trigger)
	if err != nil {
		return "", err
	}
	return related.FullContext, nil
}

// stream drives one transport call and applies its chunks in delivery
// order. Each request closes over its own response node captured at
// creation time, so concurrent requests can never write into each other's
// node.
func (o *Orchestrator) stream(ctx context.Context, graph ports.GraphView, req *inflightRequest, responseNode *ResponseNode, contextText, prompt string) {
	started := time.Now()

	resp, err := o.transport.Complete(ctx, ports.CompletionRequest{
		ID:      req.id.String(),
		Context: contextText,
		Prompt:  prompt,
		Stream:  true,
		OnStream: func(chunk string) {
			if req.cancelled.Load() {
				return
			}
			req.accumulated.WriteString(chunk)
			total := req.accumulated.String()
			if updateErr := o.mutator.UpdateNodeContent(graph, responseNode, total); updateErr != nil {
				o.logger.Warn("Chunk update failed",
					zap.String("requestID", req.id.String()),
					zap.Error(updateErr),
				)
			}
			o.countChunk()
			o.publish(ctx, events.NewCompletionChunk(req.id.String(), req.responseNodeID, len(chunk), len(total), time.Now()))
		},
	})

	o.observeDuration(time.Since(started))

	if req.cancelled.Load() {
		// A transport call already in flight may still have completed;
		// its result is discarded, never applied to the graph.
		o.settle(req, events.OutcomeCancelled, "")
		return
	}

	if err != nil {
		o.settleFailure(graph, responseNode, req, err)
		return
	}

	// The transport's returned content is authoritative over the naive
	// chunk concatenation.
	if updateErr := o.mutator.UpdateNodeContent(graph, responseNode, resp.Content); updateErr != nil {
		o.logger.Error("Final content update failed",
			zap.String("requestID", req.id.String()),
			zap.Error(updateErr),
		)
	}
	graph.RequestSave()

	o.logger.Info("Completion settled",
		zap.String("requestID", req.id.String()),
		zap.String("responseNodeID", req.responseNodeID),
		zap.String("model", resp.Model),
		zap.Int("tokensUsed", resp.TokensUsed),
		zap.String("finishReason", resp.FinishReason),
	)
	o.settle(req, events.OutcomeSuccess, "")
}

// settleFailure writes a classified error block into the response node and
// settles the request. This is exactly one node mutation beyond the
// placeholder creation.
func (o *Orchestrator) settleFailure(graph ports.GraphView, responseNode *ResponseNode, req *inflightRequest, cause error) {
	if updateErr := o.mutator.UpdateNodeContent(graph, responseNode, pkgerrors.ErrorNodeText(cause)); updateErr != nil {
		o.logger.Error("Error block update failed",
			zap.String("requestID", req.id.String()),
			zap.Error(updateErr),
		)
	}
	o.settle(req, events.OutcomeFailure, pkgerrors.ClassifyTransportError(cause))
}

// settle removes the request from the in-flight set and publishes its
// terminal event
func (o *Orchestrator) settle(req *inflightRequest, outcome, detail string) {
	o.mu.Lock()
	_, present := o.inflight[req.id.String()]
	delete(o.inflight, req.id.String())
	o.mu.Unlock()

	if present {
		o.gaugeInflight(-1)
	}
	o.countSettled(outcome)
	o.publish(context.Background(), events.NewRequestSettled(req.id.String(), req.responseNodeID, outcome, detail, time.Now()))
}

// Cancel signals cooperative cancellation for one request. A transport
// call already in flight may still finish; its result is discarded.
func (o *Orchestrator) Cancel(requestID string) bool {
	o.mu.Lock()
	req, ok := o.inflight[requestID]
	o.mu.Unlock()

	if !ok {
		return false
	}
	req.cancelled.Store(true)
	req.cancel()
	return true
}

// InFlight lists the currently running requests
func (o *Orchestrator) InFlight() []RequestInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	infos := make([]RequestInfo, 0, len(o.inflight))
	for _, req := range o.inflight {
		infos = append(infos, RequestInfo{
			ID:             req.id.String(),
			TriggerNodeID:  req.triggerNodeID,
			ResponseNodeID: req.responseNodeID,
			StartedAt:      req.startedAt,
		})
	}
	return infos
}

// Cleanup signals cancellation to every in-flight request and clears the
// set. Safe to call with nothing in flight and safe to call repeatedly;
// it never panics.
func (o *Orchestrator) Cleanup() {
	o.mu.Lock()
	pending := make([]*inflightRequest, 0, len(o.inflight))
	for _, req := range o.inflight {
		pending = append(pending, req)
	}
	o.mu.Unlock()

	for _, req := range pending {
		req.cancelled.Store(true)
		req.cancel()
	}

	o.wg.Wait()

	o.mu.Lock()
	o.inflight = make(map[string]*inflightRequest)
	o.mu.Unlock()
}

// notifyRejected publishes the lightweight pre-flight notice
func (o *Orchestrator) notifyRejected(ctx context.Context, triggerNodeID, reason string) {
	o.logger.Debug("Submission rejected",
		zap.String("triggerNodeID", triggerNodeID),
		zap.String("reason", reason),
	)
	o.publish(ctx, events.NewRequestRejected(triggerNodeID, reason, time.Now()))
}

// publish sends an event, logging instead of failing: event delivery never
// decides a request's fate
func (o *Orchestrator) publish(ctx context.Context, event events.DomainEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("Event publish failed",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) gaugeInflight(delta float64) {
	if o.metrics != nil {
		o.metrics.RequestsInFlight.Add(delta)
	}
}

func (o *Orchestrator) countSettled(outcome string) {
	if o.metrics != nil {
		o.metrics.RequestsSettled.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) countChunk() {
	if o.metrics != nil {
		o.metrics.StreamChunks.Inc()
	}
}

func (o *Orchestrator) observeDuration(d time.Duration) {
	if o.metrics != nil {
		o.metrics.CompletionDuration.Observe(d.Seconds())
	}
}
