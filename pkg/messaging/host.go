// Package messaging implements the message host: it reads commands as
// newline-delimited JSON, runs one test at a time and reports through a
// dispatcher, whose JSONL writer carries the messages back to the caller.
package messaging

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// ActionStartTesting starts a run against the command's URL.
const ActionStartTesting = "startTesting"

// maxCommandSize bounds one inbound line.
const maxCommandSize = 1 << 20

// Command is an inbound message.
type Command struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// OpenFunc loads the page a command targets. release is called once the
// run has finished with the page; it may be nil.
type OpenFunc func(ctx context.Context, url string) (page inputvalidation.Page, release func(), err error)

// HostConfig configures a Host.
type HostConfig struct {
	// Open loads pages. Required.
	Open OpenFunc

	// Options are applied to every run. RunID and Logger are set per run.
	Options inputvalidation.Options

	// Dispatcher receives every outbound message. Required.
	Dispatcher *dispatcher.Dispatcher

	Logger *slog.Logger
}

// Host serves commands. At most one run is active at a time; a start
// command received meanwhile is acknowledged as busy.
type Host struct {
	open   OpenFunc
	opts   inputvalidation.Options
	d      *dispatcher.Dispatcher
	logger *slog.Logger

	mu     sync.Mutex
	active string
	wg     sync.WaitGroup
}

// NewHost creates a host.
func NewHost(cfg HostConfig) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		open:   cfg.Open,
		opts:   cfg.Options,
		d:      cfg.Dispatcher,
		logger: logger,
	}
}

// Serve handles every line read from r, then waits for the active run to
// finish. Blank lines are ignored.
func (h *Host) Serve(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxCommandSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		h.Handle(ctx, line)
	}
	h.Wait()
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// Handle processes one command. Runs are started in the background; use
// Wait to block until they finish.
func (h *Host) Handle(ctx context.Context, line []byte) {
	var cmd Command
	if err := jsonutil.Unmarshal(line, &cmd); err != nil {
		h.reject(ctx, fmt.Errorf("%w: %w", ErrMalformedCommand, err))
		return
	}

	switch cmd.Action {
	case ActionStartTesting:
		h.start(ctx, cmd)
	default:
		h.reject(ctx, fmt.Errorf("%w %q", ErrUnknownAction, cmd.Action))
	}
}

// Active returns the ID of the running test, or "".
func (h *Host) Active() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Wait blocks until no run is active.
func (h *Host) Wait() {
	h.wg.Wait()
}

func (h *Host) start(ctx context.Context, cmd Command) {
	if cmd.URL == "" {
		h.reject(ctx, fmt.Errorf("%w: %s requires a url", ErrMalformedCommand, cmd.Action))
		return
	}

	h.mu.Lock()
	if h.active != "" {
		active := h.active
		h.mu.Unlock()
		h.logger.Info("start rejected, test in progress", slog.String("run_id", active))
		h.dispatch(ctx, events.NewAck(active, events.AckBusy))
		return
	}
	runID := uuid.NewString()
	h.active = runID
	h.wg.Add(1)
	h.mu.Unlock()

	h.dispatch(ctx, events.NewAck(runID, events.AckReceived))
	h.dispatch(ctx, events.NewStarting(runID))

	go h.run(ctx, runID, cmd.URL)
}

func (h *Host) run(ctx context.Context, runID, url string) {
	defer func() {
		h.mu.Lock()
		h.active = ""
		h.mu.Unlock()
		h.wg.Done()
	}()

	ctx, cancel := context.WithTimeout(ctx, duration.RunMax)
	defer cancel()

	logger := h.logger.With(slog.String("run_id", runID))
	reporter := dispatcher.NewReporter(h.d, runID)

	if err := inputvalidation.ValidateTarget(url); err != nil {
		reporter.OnError(ctx, err)
		return
	}

	page, release, err := h.open(ctx, url)
	if err != nil {
		logger.Warn("cannot open page", slog.String("url", url), slog.String("error", err.Error()))
		reporter.OnError(ctx, fmt.Errorf("%w: %w", inputvalidation.ErrEnumerate, err))
		return
	}
	if release != nil {
		defer release()
	}

	opts := h.opts
	opts.RunID = runID
	opts.Logger = logger
	if _, err := inputvalidation.NewRunner(page, opts, reporter).Run(ctx); err != nil {
		logger.Warn("test run failed", slog.String("error", err.Error()))
	}
}

func (h *Host) reject(ctx context.Context, err error) {
	h.logger.Warn("command rejected", slog.String("error", err.Error()))
	ev := events.NewError("", err)
	ev.Kind = events.KindCommand
	h.dispatch(ctx, ev)
}

func (h *Host) dispatch(ctx context.Context, ev events.Event) {
	if err := h.d.Dispatch(ctx, ev); err != nil {
		h.logger.Warn("dispatch failed", slog.String("error", err.Error()))
	}
}
