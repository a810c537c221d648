package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/aescanero/dago-node-cel/internal/config"
	"github.com/aescanero/dago-node-cel/internal/eval/cel"
	"github.com/aescanero/dago-node-cel/internal/eval/template"
	"github.com/aescanero/dago-node-cel/internal/router"
)

// Worker consumes evaluation requests from a Redis stream
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	evaluator     *cel.Evaluator
	router        *router.Router
	templates     *template.Engine
	store         *BindingsStore
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	evaluator *cel.Evaluator,
	routerInstance *router.Router,
	store *BindingsStore,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		evaluator:     evaluator,
		router:        routerInstance,
		templates:     template.NewEngine(),
		store:         store,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting cel worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.wg.Add(1)
	go w.processWork()

	w.logger.Info("cel worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight request to finish
func (w *Worker) Stop() error {
	w.logger.Info("stopping cel worker", zap.String("worker_id", w.id))

	w.cancel()
	w.wg.Wait()

	w.logger.Info("cel worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream
func (w *Worker) processWork() {
	defer w.wg.Done()
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
		}

		streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
			Group:    w.consumerGroup,
			Consumer: w.id,
			Streams:  []string{w.streamKey, ">"},
			Count:    1,
			Block:    w.config.BlockTime,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read from stream", zap.Error(err))
			select {
			case <-w.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				w.handleMessage(message)
			}
		}
	}
}

// handleMessage handles a single evaluation request message
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	w.logger.Info("processing evaluation request",
		zap.String("message_id", messageID),
	)

	request, err := parseWorkRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse work request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.publishError(&WorkRequest{RequestID: messageID}, err)
		w.acknowledgeMessage(messageID)
		return
	}

	if err := w.processRequest(w.ctx, request); err != nil {
		w.logger.Error("failed to process evaluation request",
			zap.String("message_id", messageID),
			zap.String("request_id", request.RequestID),
			zap.Error(err),
		)
		w.publishError(request, err)
	}

	w.acknowledgeMessage(messageID)
}

// WorkRequest represents an evaluation or routing request. Exactly one of
// Expression and Rules is set.
type WorkRequest struct {
	RequestID   string                 `json:"request_id"`
	Expression  string                 `json:"expression,omitempty"`
	Rules       []router.Rule          `json:"rules,omitempty"`
	Fallback    string                 `json:"fallback,omitempty"`
	Mode        router.RoutingMode     `json:"mode,omitempty"`
	Strict      bool                   `json:"strict,omitempty"`
	Bindings    map[string]interface{} `json:"bindings,omitempty"`
	BindingsKey string                 `json:"bindings_key,omitempty"`
	Template    string                 `json:"template,omitempty"`
}

// WorkResult is published to the result stream
type WorkResult struct {
	RequestID  string      `json:"request_id"`
	WorkerID   string      `json:"worker_id"`
	Expression string      `json:"expression,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Target     string      `json:"target,omitempty"`
	Targets    []string    `json:"targets,omitempty"`
	RuleIndex  *int        `json:"rule_index,omitempty"`
	PathTaken  string      `json:"path_taken,omitempty"`
	Skipped    []int       `json:"skipped,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// parseWorkRequest parses a work request from a Redis message
func parseWorkRequest(values map[string]interface{}) (*WorkRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request WorkRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work request: %w", err)
	}

	// Re-decode the bindings so integral numbers stay integers
	var raw struct {
		Bindings json.RawMessage `json:"bindings"`
	}
	if err := json.Unmarshal([]byte(dataStr), &raw); err == nil && len(raw.Bindings) > 0 {
		bindings, err := DecodeBindings(raw.Bindings)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bindings: %w", err)
		}
		request.Bindings = bindings
	}

	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}

	switch {
	case request.Expression == "" && len(request.Rules) == 0:
		return nil, fmt.Errorf("request %s: expression or rules is required", request.RequestID)
	case request.Expression != "" && len(request.Rules) > 0:
		return nil, fmt.Errorf("request %s: expression and rules are exclusive", request.RequestID)
	}

	return &request, nil
}

// processRequest evaluates a request and publishes its result
func (w *Worker) processRequest(ctx context.Context, request *WorkRequest) error {
	bindings, err := w.resolveBindings(ctx, request)
	if err != nil {
		return err
	}

	result := &WorkResult{
		RequestID:  request.RequestID,
		WorkerID:   w.id,
		Expression: request.Expression,
	}

	if request.Expression != "" {
		out, err := w.evaluator.Evaluate(ctx, request.Expression, bindings)
		if err != nil {
			return err
		}
		result.Result = encodeResult(out)
	} else {
		decision, err := w.router.Route(ctx, bindings, &router.Config{
			Mode:     request.Mode,
			Rules:    request.Rules,
			Fallback: request.Fallback,
			Strict:   request.Strict,
		})
		if err != nil {
			return fmt.Errorf("routing failed: %w", err)
		}
		result.Target = decision.Target
		result.Targets = decision.Targets
		result.RuleIndex = &decision.RuleIndex
		result.PathTaken = decision.PathTaken
		result.Skipped = decision.Skipped
	}

	summary, err := w.templates.RenderSummary(request.Template, &template.Summary{
		RequestID:  request.RequestID,
		Expression: request.Expression,
		Result:     result.Result,
		Target:     result.Target,
		Bindings:   bindings,
	})
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	result.Summary = summary

	if err := w.publishResult(result); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// resolveBindings merges stored bindings with the request's inline ones.
// Inline bindings win.
func (w *Worker) resolveBindings(ctx context.Context, request *WorkRequest) (map[string]interface{}, error) {
	if request.BindingsKey == "" {
		return request.Bindings, nil
	}

	stored, err := w.store.Load(ctx, request.BindingsKey)
	if err != nil {
		return nil, err
	}
	for k, v := range request.Bindings {
		stored[k] = v
	}
	return stored, nil
}

// encodeResult prepares an evaluation result for JSON encoding
func encodeResult(v interface{}) interface{} {
	switch v := v.(type) {
	case proto.Message:
		data, err := protojson.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return json.RawMessage(data)
	case time.Duration:
		return v.String()
	case []interface{}:
		for i, e := range v {
			v[i] = encodeResult(e)
		}
		return v
	case map[string]interface{}:
		for k, e := range v {
			v[k] = encodeResult(e)
		}
		return v
	default:
		return v
	}
}

// publishResult publishes a result, retrying up to MAX_RETRIES times
func (w *Worker) publishResult(result *WorkResult) error {
	result.Timestamp = time.Now().UTC()
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err = w.redisClient.XAdd(context.Background(), &redis.XAddArgs{
			Stream: w.resultStream,
			Values: map[string]interface{}{
				"data": string(data),
			},
		}).Err()
		if err == nil || attempt >= w.config.MaxRetries {
			break
		}
		w.logger.Warn("retrying result publish",
			zap.String("request_id", result.RequestID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Info("published result",
		zap.String("request_id", result.RequestID),
		zap.String("summary", result.Summary),
	)
	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(request *WorkRequest, err error) {
	summary, renderErr := w.templates.RenderSummary(request.Template, &template.Summary{
		RequestID:  request.RequestID,
		Expression: request.Expression,
		Error:      err.Error(),
	})
	if renderErr != nil {
		summary = ""
	}

	errorEvent := map[string]interface{}{
		"request_id": request.RequestID,
		"worker_id":  w.id,
		"expression": request.Expression,
		"error":      err.Error(),
		"summary":    summary,
		"timestamp":  time.Now().UTC(),
	}

	data, marshalErr := json.Marshal(errorEvent)
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	// Publish error to a separate stream
	_, publishErr := w.redisClient.XAdd(context.Background(), &redis.XAddArgs{
		Stream: w.resultStream + ".errors",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	// Acknowledge even when the worker is stopping mid-request
	err := w.redisClient.XAck(context.Background(), w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
