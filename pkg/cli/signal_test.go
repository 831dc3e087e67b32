package cli

import (
	"bytes"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
)

func TestSignalContext_CancelOnInterrupt(t *testing.T) {
	var out bytes.Buffer
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(&out, 5*time.Second, sigChan, func(int) {})
	defer cancel()

	sigChan <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
}

func TestSignalContext_SecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	ctx, cancel := signalContextWithNotifier(&bytes.Buffer{}, 5*time.Second, sigChan, func(code int) {
		exitCode.Store(int32(code))
	})
	defer cancel()

	sigChan <- os.Interrupt
	<-ctx.Done()
	sigChan <- os.Interrupt

	require.Eventually(t, func() bool {
		return exitCode.Load() == defaults.ExitUserError
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignalContext_GraceExpires(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var exitCalled atomic.Bool

	_, cancel := signalContextWithNotifier(&bytes.Buffer{}, 50*time.Millisecond, sigChan, func(int) {
		exitCalled.Store(true)
	})
	defer cancel()

	sigChan <- os.Interrupt
	time.Sleep(200 * time.Millisecond)
	assert.False(t, exitCalled.Load())
}

func TestSignalContext_ManualCancel(t *testing.T) {
	ctx, cancel := signalContextWithNotifier(&bytes.Buffer{}, 5*time.Second, make(chan os.Signal, 1), nil)
	assert.NoError(t, ctx.Err())
	cancel()
	<-ctx.Done()
}
