package headless

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// Page is one browser tab. It implements inputvalidation.Page by evaluating
// scripts in the tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	title  string
	logger *slog.Logger

	mu      sync.Mutex
	dialogs []string
}

var _ inputvalidation.Page = (*Page)(nil)

// Open loads targetURL in a new tab and waits for it to settle. The page must
// be closed.
func (b *Browser) Open(ctx context.Context, targetURL string, logger *slog.Logger) (*Page, error) {
	if err := inputvalidation.ValidateTarget(targetURL); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	p := &Page{ctx: tabCtx, cancel: cancel, logger: logger}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			p.recordDialog(e)
		}
	})

	loadCtx, loadCancel := context.WithTimeout(tabCtx, b.cfg.PageTimeout)
	defer loadCancel()
	stop := context.AfterFunc(ctx, loadCancel)
	defer stop()

	err := chromedp.Run(loadCtx,
		page.Enable(),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.cfg.IdleTimeout),
		chromedp.Location(&p.url),
		chromedp.Title(&p.title),
	)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("load %s: %w", targetURL, err)
	}
	// Redirects may land on an internal page.
	if err := inputvalidation.ValidateTarget(p.url); err != nil {
		cancel()
		return nil, err
	}
	logger.Debug("page loaded", slog.String("url", p.url), slog.String("title", p.title))
	return p, nil
}

// recordDialog accepts a JavaScript dialog and remembers it. Handling runs on
// its own goroutine since the listener must not block the event loop.
func (p *Page) recordDialog(e *page.EventJavascriptDialogOpening) {
	p.mu.Lock()
	p.dialogs = append(p.dialogs, fmt.Sprintf("%s: %s", e.Type, e.Message))
	p.mu.Unlock()

	go func() {
		if err := chromedp.Run(p.ctx, page.HandleJavaScriptDialog(true)); err != nil {
			p.logger.Debug("dismiss dialog failed", slog.String("error", err.Error()))
		}
	}()
}

func (p *Page) takeDialogs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dialogs
	p.dialogs = nil
	return d
}

// URL returns the address the tab ended up on.
func (p *Page) URL() string { return p.url }

// Title returns the document title at load time.
func (p *Page) Title() string { return p.title }

// Close closes the tab.
func (p *Page) Close() { p.cancel() }

// eval runs script in the tab and returns its string result. ctx bounds the
// call without owning the tab: cancelling it aborts the evaluation only.
func (p *Page) eval(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &out)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return out, nil
}

func (p *Page) evalField(ctx context.Context, index int, script string) (fieldReply, error) {
	raw, err := p.eval(ctx, script)
	if err != nil {
		return fieldReply{}, fmt.Errorf("field %d: %w", index, err)
	}
	return parseReply(index, raw)
}

// EnumerateFields lists every non-hidden input and every textarea.
func (p *Page) EnumerateFields(ctx context.Context) ([]inputvalidation.FieldElement, error) {
	raw, err := p.eval(ctx, enumerateScript)
	if err != nil {
		return nil, err
	}
	return parseFields(raw)
}

// ReadField returns the field's current state and any dialogs opened since
// the previous read.
func (p *Page) ReadField(ctx context.Context, index int) (inputvalidation.FieldState, error) {
	r, err := p.evalField(ctx, index, readScript(index))
	if err != nil {
		return inputvalidation.FieldState{}, err
	}
	return inputvalidation.FieldState{
		Value:             r.Value,
		Valid:             r.Valid,
		ValidationMessage: r.ValidationMessage,
		ClassName:         r.ClassName,
		AriaInvalid:       r.AriaInvalid,
		Dialogs:           p.takeDialogs(),
	}, nil
}

// SetValue assigns value without firing events.
func (p *Page) SetValue(ctx context.Context, index int, value string) error {
	_, err := p.evalField(ctx, index, setScript(index, value))
	return err
}

// DispatchSyntheticEvents fires the field's events in the tab.
func (p *Page) DispatchSyntheticEvents(ctx context.Context, index int, submit bool) error {
	_, err := p.evalField(ctx, index, dispatchScript(index, submit))
	return err
}

// RestoreField puts back the snapshot's value, class and aria-invalid state.
func (p *Page) RestoreField(ctx context.Context, index int, snapshot inputvalidation.FieldState) error {
	_, err := p.evalField(ctx, index, restoreScript(index, snapshot))
	return err
}
