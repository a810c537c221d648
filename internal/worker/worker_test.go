package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aescanero/dago-node-cel/internal/config"
	"github.com/aescanero/dago-node-cel/internal/eval/cel"
	"github.com/aescanero/dago-node-cel/internal/router"
)

type harness struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	cfg    *config.Config
	store  *BindingsStore
	worker *Worker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		WorkerID:          "cel-test",
		StreamKey:         "cel.work",
		ConsumerGroup:     "cel-workers",
		ResultStream:      "cel.results",
		BlockTime:         50 * time.Millisecond,
		MaxRetries:        1,
		BindingsKeyPrefix: "cel:bindings:",
	}
	logger := zaptest.NewLogger(t)
	evaluator, err := cel.NewEvaluator(cel.Logger(logger), cel.StringsExtension())
	require.NoError(t, err)
	store := NewBindingsStore(client, cfg.BindingsKeyPrefix, 0, logger)

	return &harness{
		mr:     mr,
		client: client,
		cfg:    cfg,
		store:  store,
		worker: NewWorker(cfg, client, evaluator, router.NewRouter(evaluator, logger), store, logger),
	}
}

func (h *harness) submit(t *testing.T, request map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(request)
	require.NoError(t, err)
	require.NoError(t, h.client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: h.cfg.StreamKey,
		Values: map[string]interface{}{"data": string(data)},
	}).Err())
}

// await returns the decoded entries of stream once it holds n of them
func (h *harness) await(t *testing.T, stream string, n int) []map[string]interface{} {
	t.Helper()
	var entries []redis.XMessage
	require.Eventually(t, func() bool {
		var err error
		entries, err = h.client.XRange(context.Background(), stream, "-", "+").Result()
		return err == nil && len(entries) >= n
	}, 5*time.Second, 20*time.Millisecond)

	out := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		require.NoError(t, json.Unmarshal([]byte(e.Values["data"].(string)), &out[i]))
	}
	return out
}

func TestWorkerEvaluates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.worker.Start())
	defer func() { _ = h.worker.Stop() }()

	h.submit(t, map[string]interface{}{
		"request_id": "r1",
		"expression": "x + 1",
		"bindings":   map[string]interface{}{"x": 41},
	})
	h.submit(t, map[string]interface{}{
		"request_id": "r2",
		"expression": "name.upperAscii()",
		"bindings":   map[string]interface{}{"name": "ada"},
		"template":   "{{request_id}} says {{result}}",
	})

	results := h.await(t, h.cfg.ResultStream, 2)
	assert.Equal(t, "r1", results[0]["request_id"])
	assert.Equal(t, float64(42), results[0]["result"])
	assert.Equal(t, "request r1: x + 1 => 42", results[0]["summary"])
	assert.Equal(t, "cel-test", results[0]["worker_id"])
	assert.Equal(t, "r2 says ADA", results[1]["summary"])

	pending, err := h.client.XPending(context.Background(), h.cfg.StreamKey, h.cfg.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestWorkerRoutes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(context.Background(), "session", map[string]interface{}{
		"state": map[string]interface{}{"priority": "high", "score": 0.2},
	}))
	require.NoError(t, h.worker.Start())
	defer func() { _ = h.worker.Stop() }()

	h.submit(t, map[string]interface{}{
		"request_id":   "route-1",
		"bindings_key": "session",
		"rules": []map[string]string{
			{"condition": "state.score > 0.5", "target": "premium"},
			{"condition": "state.priority == 'high'", "target": "urgent"},
		},
		"fallback": "default",
	})

	results := h.await(t, h.cfg.ResultStream, 1)
	assert.Equal(t, "urgent", results[0]["target"])
	assert.Equal(t, float64(1), results[0]["rule_index"])
	assert.Equal(t, "rule", results[0]["path_taken"])
	assert.Equal(t, "request route-1: routed to urgent", results[0]["summary"])
}

func TestWorkerPublishesErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.worker.Start())
	defer func() { _ = h.worker.Stop() }()

	h.submit(t, map[string]interface{}{"request_id": "bad-1", "expression": "1 / 0"})
	h.submit(t, map[string]interface{}{"request_id": "bad-2", "expression": "1 +"})
	h.submit(t, map[string]interface{}{"request_id": "bad-3", "expression": "x", "bindings_key": "nope"})
	h.submit(t, map[string]interface{}{"request_id": "bad-4"})
	require.NoError(t, h.client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: h.cfg.StreamKey,
		Values: map[string]interface{}{"other": "field"},
	}).Err())

	errs := h.await(t, h.cfg.ResultStream+".errors", 5)
	assert.Equal(t, "bad-1", errs[0]["request_id"])
	assert.Contains(t, errs[0]["error"], "divide by zero")
	assert.Equal(t, "request bad-1 failed: "+errs[0]["error"].(string), errs[0]["summary"])
	assert.Contains(t, errs[1]["error"], "failed to compile expression")
	assert.Contains(t, errs[2]["error"], "bindings not found: nope")
	assert.Contains(t, errs[3]["error"], "expression or rules is required")
	assert.Contains(t, errs[4]["error"], "missing or invalid 'data' field")

	n, err := h.client.XLen(context.Background(), h.cfg.ResultStream).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerRestartKeepsGroup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.worker.Start())
	require.NoError(t, h.worker.Stop())

	again := NewWorker(h.cfg, h.client, h.worker.evaluator, h.worker.router, h.store, zaptest.NewLogger(t))
	require.NoError(t, again.Start())
	require.NoError(t, again.Stop())
}

func TestParseWorkRequest(t *testing.T) {
	request, err := parseWorkRequest(map[string]interface{}{
		"data": `{"expression": "x", "bindings": {"n": 3, "f": 1.5, "list": [1, 2.5], "nested": {"m": 7}}}`,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, request.RequestID)
	assert.Equal(t, int64(3), request.Bindings["n"])
	assert.Equal(t, 1.5, request.Bindings["f"])
	assert.Equal(t, []interface{}{int64(1), 2.5}, request.Bindings["list"])
	assert.Equal(t, map[string]interface{}{"m": int64(7)}, request.Bindings["nested"])

	_, err = parseWorkRequest(map[string]interface{}{
		"data": `{"expression": "x", "rules": [{"condition": "true", "target": "a"}]}`,
	})
	assert.ErrorContains(t, err, "expression and rules are exclusive")

	_, err = parseWorkRequest(map[string]interface{}{"data": `{`})
	assert.ErrorContains(t, err, "failed to unmarshal work request")
}

func TestEncodeResult(t *testing.T) {
	got := encodeResult(map[string]interface{}{
		"d":    90 * time.Second,
		"list": []interface{}{time.Millisecond},
	})
	assert.Equal(t, map[string]interface{}{
		"d":    "1m30s",
		"list": []interface{}{"1ms"},
	}, got)
}
