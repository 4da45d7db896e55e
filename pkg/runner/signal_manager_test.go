package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalManager_Stop(t *testing.T) {
	sm := NewSignalManager(context.Background())

	ctx := sm.Context()
	assert.NoError(t, ctx.Err())

	sm.Stop()
	sm.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, sm.Interrupted())
}

func TestSignalManager_Interrupt(t *testing.T) {
	sm := NewSignalManager(context.Background())
	defer sm.Stop()

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(os.Interrupt))

	select {
	case <-sm.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not cancel the context")
	}
	assert.True(t, sm.Interrupted())
}

func TestSignalManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	cancel()
	<-sm.Context().Done()
	assert.False(t, sm.Interrupted())
}
