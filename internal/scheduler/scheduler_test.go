package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	called := false
	reg.Register("capsule.outline", func(ctx context.Context, payload []byte) error {
		called = true
		return nil
	})

	h, ok := reg.Lookup("capsule.outline")
	require.True(t, ok)
	require.NoError(t, h(context.Background(), nil))
	assert.True(t, called)

	_, ok = reg.Lookup("unknown.task")
	assert.False(t, ok)
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, NewRegistry(), zerolog.Nop(), 0, 0)
	assert.Equal(t, time.Second, w.pollInterval)
	assert.Equal(t, 1, w.concurrency)
}
