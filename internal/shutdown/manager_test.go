package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photofilter/internal/logger"
)

func TestShutdownRunsStepsInReverseOnce(t *testing.T) {
	m := NewManager(logger.Nop(), time.Second)

	var order []string
	m.Register("engine", func() error { order = append(order, "engine"); return nil })
	m.Register("sink", func() error { order = append(order, "sink"); return nil })

	require.NoError(t, m.Shutdown())
	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"sink", "engine"}, order)

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := NewManager(logger.Nop(), time.Second)
	boom := errors.New("boom")
	m.Register("context", func() error { return boom })
	m.Register("ok", func() error { return nil })

	err := m.Shutdown()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "context")
}

func TestShutdownStepTimeout(t *testing.T) {
	m := NewManager(logger.Nop(), 10*time.Millisecond)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	m.Register("stuck", func() error { <-release; return nil })

	err := m.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestListenStopCancels(t *testing.T) {
	m := NewManager(logger.Nop(), time.Second)
	ctx, stop := m.Listen(context.Background())
	require.NoError(t, ctx.Err())

	stop()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}
