package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func TestContext_PushPop(t *testing.T) {
	root := New(context.Background(), nil)
	assert.Same(t, root, root.Pop())
	assert.Equal(t, time.UTC, root.Location())

	tokyo := time.FixedZone("JST", 9*3600)
	child := root.Push(WithLocation(tokyo))
	assert.Equal(t, tokyo, child.Location())
	assert.Equal(t, time.UTC, root.Location())
	assert.Same(t, root, child.Pop())
	assert.Equal(t, value.DefaultAdapter, child.Adapter())
}

func TestContext_CostLimit(t *testing.T) {
	rt := New(context.Background(), nil, WithCostLimit(3))
	child := rt.Push()

	require.Nil(t, rt.Charge(1, 2))
	require.Nil(t, child.Charge(1, 1))
	err := child.Charge(7, 1)
	require.NotNil(t, err)
	assert.Equal(t, int64(7), err.ID)
	assert.Equal(t, int64(4), rt.Cost())
}

func TestContext_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt := New(ctx, nil)
	assert.Nil(t, rt.Interrupted(1))
	cancel()
	err := rt.Interrupted(2)
	require.NotNil(t, err)
	assert.Equal(t, "operation interrupted", err.Message)
}
