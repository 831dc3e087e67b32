package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// OutputMode determines how progress is displayed
type OutputMode int

const (
	// OutputModeInteractive redraws one animated line with ANSI codes.
	OutputModeInteractive OutputMode = iota
	// OutputModeStreaming prints a plain line every few percent.
	OutputModeStreaming
	// OutputModeSilent prints nothing.
	OutputModeSilent
)

// DefaultOutputMode returns Interactive when stderr is a terminal and
// Streaming otherwise.
func DefaultOutputMode() OutputMode {
	if IsSilent() {
		return OutputModeSilent
	}
	if StderrIsTerminal() {
		return OutputModeInteractive
	}
	return OutputModeStreaming
}

// LiveProgressConfig configures the progress display.
type LiveProgressConfig struct {
	Mode OutputMode

	// Writer defaults to os.Stderr.
	Writer io.Writer

	// BarWidth is the width of the progress bar (default: 30)
	BarWidth int

	// StreamStep is the percentage between two streaming lines (default: 10)
	StreamStep int
}

// LiveProgress follows a run through dispatcher events and shows which
// field is being probed.
type LiveProgress struct {
	config LiveProgressConfig

	mu        sync.Mutex
	target    string
	fields    int
	completed int
	total     int
	field     string
	started   time.Time
	streamed  int
	frame     int
	running   bool
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ dispatcher.Hook = (*LiveProgress)(nil)

// NewLiveProgress creates a progress display.
func NewLiveProgress(config LiveProgressConfig) *LiveProgress {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	if config.BarWidth <= 0 {
		config.BarWidth = 30
	}
	if config.StreamStep <= 0 {
		config.StreamStep = 10
	}
	return &LiveProgress{config: config, streamed: -1}
}

// EventTypes returns the run lifecycle events.
func (lp *LiveProgress) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeProgress,
		events.EventTypeResults,
		events.EventTypeError,
	}
}

// OnEvent updates the display.
func (lp *LiveProgress) OnEvent(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.StartEvent:
		lp.begin(e)
	case *events.ProgressEvent:
		lp.update(e)
	case *events.ResultsEvent, *events.ErrorEvent:
		lp.Stop()
	}
	return nil
}

func (lp *LiveProgress) begin(e *events.StartEvent) {
	lp.mu.Lock()
	lp.target = e.Target
	lp.fields = e.TotalFields
	lp.total = e.TotalProbes
	lp.completed = 0
	lp.started = time.Now()
	start := lp.config.Mode == OutputModeInteractive && !lp.running
	if start {
		lp.running = true
		lp.done = make(chan struct{})
	}
	lp.mu.Unlock()

	if lp.config.Mode == OutputModeSilent {
		return
	}
	fmt.Fprintf(lp.config.Writer, "Testing %d fields on %s (%d probes)\n",
		e.TotalFields, URLStyle.Render(e.Target), e.TotalProbes)
	if start {
		fmt.Fprintln(lp.config.Writer)
		lp.wg.Add(1)
		go lp.renderLoop()
	}
}

func (lp *LiveProgress) update(e *events.ProgressEvent) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if e.Total > 0 {
		lp.total = e.Total
	}
	lp.completed = e.Completed
	lp.field = e.CurrentField

	if lp.config.Mode != OutputModeStreaming || lp.total == 0 {
		return
	}
	step := e.Progress / lp.config.StreamStep * lp.config.StreamStep
	if step > lp.streamed {
		lp.streamed = step
		fmt.Fprintf(lp.config.Writer, "[%s] %d/%d (%d%%) %s\n",
			formatElapsed(time.Since(lp.started)), lp.completed, lp.total, e.Progress, lp.field)
	}
}

// Stop ends the animation and leaves the final state on screen. Safe to
// call more than once.
func (lp *LiveProgress) Stop() {
	lp.mu.Lock()
	if !lp.running {
		lp.mu.Unlock()
		return
	}
	lp.running = false
	close(lp.done)
	lp.mu.Unlock()

	lp.wg.Wait()
	lp.render(true)
}

func (lp *LiveProgress) renderLoop() {
	defer lp.wg.Done()

	ticker := time.NewTicker(duration.UIRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-lp.done:
			return
		case <-ticker.C:
			lp.render(false)
		}
	}
}

func (lp *LiveProgress) render(final bool) {
	lp.mu.Lock()
	line := lp.line(DefaultSpinner())
	lp.mu.Unlock()

	end := ""
	if final {
		end = "\n"
	}
	fmt.Fprintf(lp.config.Writer, "\r\033[K%s%s", line, end)
}

// line builds the interactive progress line. Callers hold mu.
func (lp *LiveProgress) line(spinner Spinner) string {
	percent := 0.0
	if lp.total > 0 {
		percent = float64(lp.completed) / float64(lp.total) * 100
	}
	frame := SpinnerStyle.Render(spinner.Frame(lp.frame))
	if lp.total > 0 && lp.completed >= lp.total {
		frame = SafeStyle.Render(Icon("✔", "+"))
	}
	lp.frame++

	field := lp.field
	if field == "" {
		field = events.StartingField
	}
	return fmt.Sprintf("  %s %s %5.1f%% %d/%d  %s  %s",
		frame,
		buildBar(percent, lp.config.BarWidth),
		percent, lp.completed, lp.total,
		StatLabelStyle.Render(formatElapsed(time.Since(lp.started))),
		field)
}

// buildBar renders a bar using block characters on Unicode terminals.
func buildBar(percent float64, width int) string {
	fill := int(float64(width) * percent / 100)
	fill = max(0, min(fill, width))
	return "[" +
		ProgressFullStyle.Render(strings.Repeat(Icon("█", "#"), fill)) +
		ProgressEmptyStyle.Render(strings.Repeat(Icon("░", "-"), width-fill)) +
		"]"
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
