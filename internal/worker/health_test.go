package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aescanero/dago-node-cel/internal/eval/cel"
)

func TestHealthEndpoints(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)
	hs := NewHealthServer(0, client, evaluator, zaptest.NewLogger(t))
	server := httptest.NewServer(hs.Handler())
	defer server.Close()

	get := func(path string) (int, HealthResponse) {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := get("/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"redis": "healthy", "cel": "healthy"}, body.Checks)

	status, body = get("/ready")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body.Status)

	mr.Close()

	status, body = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["redis"], "unhealthy")

	status, body = get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready", body.Status)
}
