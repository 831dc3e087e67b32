// Package fakedom implements inputvalidation.Page over a static HTML
// document, without a browser.
//
// The document is parsed with goquery. Fields get the parts of native
// constraint validation and value sanitization that decide probe outcomes
// (required, email, url, number and pattern), and page-side behaviour is
// scripted in Tengo:
//
//	<input name="token">
//	<script type="text/tengo" data-for="token">
//	text := import("text")
//	react := func(event, value) {
//		if event == "blur" { return text.re_replace("[<>]", value, "") }
//		return value
//	}
//	</script>
//
// react is called once per dispatched event ("input", "change", "blur" and
// "submit") and may return the new value as a string, or a map with any of
// value, invalid (a custom validity message, or true), addClass,
// ariaInvalid and alert. A script without data-for reacts to every field,
// like a listener on the document would.
//
// This is how fixtures and pages fetched over HTTP are probed. Pages whose
// validation lives in their own JavaScript need pkg/headless.
package fakedom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/iohelper"
)

// field is the live state of one candidate element.
type field struct {
	el        inputvalidation.FieldElement
	node      *goquery.Selection
	value     string
	className string
	aria      string
	custom    string // custom validity message, "" when valid
	barred    bool   // disabled or readonly: no constraint validation
	reactions []*reaction
	detached  bool
}

// Document is a parsed page. It is safe for concurrent use, though probes
// on one document are meant to run one at a time.
type Document struct {
	mu      sync.Mutex
	url     string
	doc     *goquery.Document
	fields  []*field
	dialogs []string
	logger  *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used for reaction script failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// Parse reads an HTML document. pageURL is reported by URL and may be empty.
func Parse(r io.Reader, pageURL string, opts ...Option) (*Document, error) {
	data, err := iohelper.ReadLimited(r, defaults.MaxFixtureBytes)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &Document{url: pageURL, doc: doc, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	scripts, err := loadReactions(doc)
	if err != nil {
		return nil, err
	}
	d.collectFields(scripts)
	return d, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(src, pageURL string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(src), pageURL, opts...)
}

// Load parses an HTML file. The document URL is the file:// address.
func Load(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, (&url.URL{Scheme: "file", Path: path}).String(), opts...)
}

// Fetch downloads and parses a page. The document URL is the address the
// request ended at after redirects.
func Fetch(ctx context.Context, client *http.Client, pageURL string, opts ...Option) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, &StatusError{Code: resp.StatusCode})
	}
	final := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return Parse(resp.Body, final, opts...)
}

// Open loads target from disk when it is a path or file:// address and
// fetches it otherwise.
func Open(ctx context.Context, client *http.Client, target string, opts ...Option) (*Document, error) {
	if strings.HasPrefix(target, "file://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		return Load(u.Path, opts...)
	}
	if !strings.Contains(target, "://") {
		return Load(target, opts...)
	}
	return Fetch(ctx, client, target, opts...)
}

// StatusError is returned by Fetch for non-2xx answers.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.Code)
}

func (d *Document) collectFields(scripts []*reaction) {
	d.doc.Find("input, textarea").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if tag == "input" && typ == "hidden" {
			return
		}

		f := &field{
			node:      s,
			className: s.AttrOr("class", ""),
			aria:      s.AttrOr("aria-invalid", ""),
			barred:    hasAttr(s, "disabled") || hasAttr(s, "readonly"),
		}
		f.el = inputvalidation.FieldElement{
			Index:           len(d.fields),
			Tag:             tag,
			Name:            s.AttrOr("name", ""),
			ID:              s.AttrOr("id", ""),
			Type:            typ,
			MaxLength:       maxLength(s),
			Pattern:         s.AttrOr("pattern", ""),
			Required:        hasAttr(s, "required"),
			ContentEditable: isContentEditable(s),
			RichText:        isRichText(s),
			InForm:          d.inForm(s),
		}
		if tag == "textarea" {
			f.value = s.Text()
		} else {
			f.value = sanitizeValue(f.el.DisplayType(), s.AttrOr("value", ""))
		}
		for _, r := range scripts {
			if r.appliesTo(f.el) {
				f.reactions = append(f.reactions, r)
			}
		}
		d.fields = append(d.fields, f)
	})
}

func (d *Document) inForm(s *goquery.Selection) bool {
	if s.Closest("form").Length() > 0 {
		return true
	}
	if owner := s.AttrOr("form", ""); owner != "" {
		return d.doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
			return f.AttrOr("id", "") == owner
		}).Length() > 0
	}
	return false
}

// hasAttr reports whether a boolean attribute is present. Its value is
// irrelevant: disabled="false" still disables.
func hasAttr(s *goquery.Selection, name string) bool {
	if len(s.Nodes) == 0 {
		return false
	}
	return nodeHasAttr(s.Nodes[0], name)
}

func nodeHasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return true
		}
	}
	return false
}

func maxLength(s *goquery.Selection) int {
	v, ok := s.Attr("maxlength")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func isContentEditable(s *goquery.Selection) bool {
	v, ok := s.Attr("contenteditable")
	if !ok {
		return false
	}
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || v == "true" || v == "plaintext-only"
}

// isRichText recognizes the explicit markers editors put on their inputs.
func isRichText(s *goquery.Selection) bool {
	if hasAttr(s, "data-richtext") || hasAttr(s, "data-rich-text") {
		return true
	}
	if attrEquals(s, "role", "textbox") && attrEquals(s, "aria-multiline", "true") {
		return true
	}
	return s.HasClass("richtext") || s.HasClass("rich-text") || s.HasClass("wysiwyg")
}

func attrEquals(s *goquery.Selection, name, want string) bool {
	v, ok := s.Attr(name)
	return ok && strings.EqualFold(strings.TrimSpace(v), want)
}

// URL implements inputvalidation.Page.
func (d *Document) URL() string { return d.url }

// EnumerateFields implements inputvalidation.Page. Fields removed with
// Remove are no longer listed.
func (d *Document) EnumerateFields(ctx context.Context) ([]inputvalidation.FieldElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]inputvalidation.FieldElement, 0, len(d.fields))
	for _, f := range d.fields {
		if !f.detached {
			out = append(out, f.el)
		}
	}
	return out, nil
}

// ReadField implements inputvalidation.Page.
func (d *Document) ReadField(ctx context.Context, index int) (inputvalidation.FieldState, error) {
	if err := ctx.Err(); err != nil {
		return inputvalidation.FieldState{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.field(index)
	if err != nil {
		return inputvalidation.FieldState{}, err
	}
	valid, msg := f.validity()
	st := inputvalidation.FieldState{
		Value:             f.value,
		Valid:             valid,
		ValidationMessage: msg,
		ClassName:         f.className,
		AriaInvalid:       f.aria,
		Dialogs:           d.dialogs,
	}
	d.dialogs = nil
	return st, nil
}

// SetValue implements inputvalidation.Page. The value goes through the
// input type's value sanitization, as assigning .value in a browser does.
func (d *Document) SetValue(ctx context.Context, index int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.field(index)
	if err != nil {
		return err
	}
	if f.el.DisplayType() == "textarea" {
		f.value = value
	} else {
		f.value = sanitizeValue(f.el.DisplayType(), value)
	}
	return nil
}

// DispatchSyntheticEvents implements inputvalidation.Page by running the
// field's reactions for input, change, blur and, if requested and the
// field has a form, submit.
func (d *Document) DispatchSyntheticEvents(ctx context.Context, index int, submit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.field(index)
	if err != nil {
		return err
	}
	events := []string{"input", "change", "blur"}
	if submit && f.el.InForm {
		events = append(events, "submit")
	}
	for _, ev := range events {
		for _, r := range f.reactions {
			res, err := r.run(ctx, ev, f.value)
			if err != nil {
				// A throwing listener does not stop the event.
				d.logger.Warn("reaction script failed",
					slog.String("field", f.el.DisplayName()),
					slog.String("event", ev),
					slog.String("error", err.Error()))
				continue
			}
			d.apply(f, res)
		}
	}
	return nil
}

func (d *Document) apply(f *field, res reactionResult) {
	if res.value != nil {
		if f.el.DisplayType() == "textarea" {
			f.value = *res.value
		} else {
			f.value = sanitizeValue(f.el.DisplayType(), *res.value)
		}
	}
	if res.invalid != nil {
		f.custom = *res.invalid
	}
	if res.addClass != "" && !strings.Contains(" "+f.className+" ", " "+res.addClass+" ") {
		f.className = strings.TrimSpace(f.className + " " + res.addClass)
	}
	if res.ariaInvalid != nil {
		f.aria = *res.ariaInvalid
	}
	if res.alert != "" {
		d.dialogs = append(d.dialogs, "alert: "+res.alert)
	}
}

// RestoreField implements inputvalidation.Page. The custom validity
// message is cleared along with the value.
func (d *Document) RestoreField(ctx context.Context, index int, snapshot inputvalidation.FieldState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.field(index)
	if err != nil {
		return err
	}
	f.value = snapshot.Value
	f.className = snapshot.ClassName
	f.aria = snapshot.AriaInvalid
	f.custom = ""
	return nil
}

func (d *Document) field(index int) (*field, error) {
	if index < 0 || index >= len(d.fields) || d.fields[index].detached {
		return nil, fmt.Errorf("field %d: %w", index, inputvalidation.ErrFieldGone)
	}
	return d.fields[index], nil
}

// Value returns the current value of a field, for inspection in tests and
// by tools.
func (d *Document) Value(index int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.field(index)
	if err != nil {
		return "", err
	}
	return f.value, nil
}

// ClassName returns the current class attribute of a field.
func (d *Document) ClassName(index int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.field(index)
	if err != nil {
		return "", err
	}
	return f.className, nil
}

// Remove detaches a field from the document, as page scripts that rebuild
// a form do.
func (d *Document) Remove(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index >= 0 && index < len(d.fields) {
		d.fields[index].detached = true
		d.fields[index].node.Remove()
	}
}

// Title returns the document title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

var _ inputvalidation.Page = (*Document)(nil)
