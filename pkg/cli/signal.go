package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM. The run
// under way stops before its next probe and still restores the field being
// tested. A second signal within gracePeriod exits immediately.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(os.Stderr, duration.SignalGrace)
//	defer cancel()
func SignalContext(w io.Writer, gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(w, gracePeriod, nil, nil)
}

// signalContextWithNotifier lets tests inject the signal channel and the
// exit function.
func signalContextWithNotifier(
	w io.Writer,
	gracePeriod time.Duration,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Interrupt received, restoring the current field and stopping...")
			cancel()

			select {
			case <-sigChan:
				exitFn(defaults.ExitUserError)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
