package inputvalidation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeField is an in-memory field whose page-side behaviour is scripted by
// plain functions.
type fakeField struct {
	el        FieldElement
	value     string
	className string
	aria      string

	react     func(string) string         // page reaction to input/change/blur
	validate  func(string) (bool, string) // native constraint validation
	flagError func(string) bool           // page adds "is-invalid" when true
	dialog    func(string) string         // page opens an alert with this text
	gone      bool
}

type fakePage struct {
	mu       sync.Mutex
	url      string
	fields   []*fakeField
	enumErr  error
	readErr  error
	dialogs  []string
	events   []string
	restores int
	onSet    func()
}

func newFakePage(fields ...*fakeField) *fakePage {
	for i, f := range fields {
		f.el.Index = i
	}
	return &fakePage{url: "https://app.example.com/form", fields: fields}
}

func textField(name string) *fakeField {
	return &fakeField{el: FieldElement{Tag: "input", Name: name, Type: "text", InForm: true}}
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) EnumerateFields(context.Context) ([]FieldElement, error) {
	if p.enumErr != nil {
		return nil, p.enumErr
	}
	out := make([]FieldElement, 0, len(p.fields))
	for _, f := range p.fields {
		out = append(out, f.el)
	}
	return out, nil
}

func (p *fakePage) field(index int) (*fakeField, error) {
	if index < 0 || index >= len(p.fields) || p.fields[index].gone {
		return nil, fmt.Errorf("index %d: %w", index, ErrFieldGone)
	}
	return p.fields[index], nil
}

func (p *fakePage) ReadField(_ context.Context, index int) (FieldState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return FieldState{}, p.readErr
	}
	f, err := p.field(index)
	if err != nil {
		return FieldState{}, err
	}
	st := FieldState{Value: f.value, Valid: true, ClassName: f.className, AriaInvalid: f.aria, Dialogs: p.dialogs}
	p.dialogs = nil
	if f.validate != nil {
		st.Valid, st.ValidationMessage = f.validate(f.value)
	}
	return st, nil
}

func (p *fakePage) SetValue(_ context.Context, index int, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := p.field(index)
	if err != nil {
		return err
	}
	f.value = value
	if p.onSet != nil {
		p.onSet()
	}
	return nil
}

func (p *fakePage) DispatchSyntheticEvents(_ context.Context, index int, submit bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := p.field(index)
	if err != nil {
		return err
	}
	p.events = append(p.events, "input", "change", "blur")
	if submit {
		p.events = append(p.events, "submit")
	}
	if f.react != nil {
		f.value = f.react(f.value)
	}
	if f.flagError != nil && f.flagError(f.value) {
		f.className = strings.TrimSpace(f.className + " is-invalid")
		f.aria = "true"
	}
	if f.dialog != nil {
		if msg := f.dialog(f.value); msg != "" {
			p.dialogs = append(p.dialogs, "alert: "+msg)
		}
	}
	return nil
}

func (p *fakePage) RestoreField(_ context.Context, index int, snapshot FieldState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := p.field(index)
	if err != nil {
		return err
	}
	f.value = snapshot.Value
	f.className = snapshot.ClassName
	f.aria = snapshot.AriaInvalid
	p.restores++
	return nil
}

// recordingReporter captures every reporter call.
type recordingReporter struct {
	mu       sync.Mutex
	started  *TestRun
	progress []Progress
	complete *TestRun
	errs     []error
}

func (r *recordingReporter) OnStart(_ context.Context, run *TestRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = run
}

func (r *recordingReporter) OnProgress(_ context.Context, p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) OnComplete(_ context.Context, run *TestRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = run
}

func (r *recordingReporter) OnError(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

var errDetached = errors.New("node is detached from document")

func stripChars(chars string) func(string) string {
	return func(v string) string {
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(chars, r) {
				return -1
			}
			return r
		}, v)
	}
}

func fastOptions() Options {
	return Options{SettleDelay: 1, ProbeInterval: 0, Submit: true}
}
