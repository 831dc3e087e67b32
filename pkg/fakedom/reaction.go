package fakedom

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// safeModules are the only Tengo stdlib modules available to reaction
// scripts. No file I/O, no network, no OS access.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times")

// reaction is a compiled page reaction script.
type reaction struct {
	target   string // name or id; "" for every field
	compiled *tengo.Compiled
}

// reactionResult is what one run of a reaction changed. Nil pointers mean
// untouched.
type reactionResult struct {
	value       *string
	invalid     *string
	addClass    string
	ariaInvalid *string
	alert       string
}

func loadReactions(doc *goquery.Document) ([]*reaction, error) {
	var out []*reaction
	var firstErr error
	doc.Find(`script[type="text/tengo"]`).Each(func(i int, s *goquery.Selection) {
		if firstErr != nil {
			return
		}
		r, err := compileReaction(s.Text(), s.AttrOr("data-for", ""))
		if err != nil {
			firstErr = fmt.Errorf("%w: reaction script %d: %w", ErrScript, i, err)
			return
		}
		out = append(out, r)
	})
	return out, firstErr
}

// compileReaction compiles src once; every run works on a Clone.
func compileReaction(src, target string) (*reaction, error) {
	wrapper := src + "\n__result__ := react(__event__, __value__)\n"

	script := tengo.NewScript([]byte(wrapper))
	script.SetImports(safeModules)
	script.SetMaxAllocs(defaults.MaxScriptAllocs)
	_ = script.Add("__event__", "")
	_ = script.Add("__value__", "")

	compiled, err := script.Compile()
	if err != nil {
		return nil, err
	}
	return &reaction{target: strings.TrimSpace(target), compiled: compiled}, nil
}

func (r *reaction) appliesTo(el inputvalidation.FieldElement) bool {
	if r.target == "" || r.target == "*" {
		return true
	}
	return r.target == el.Name || r.target == el.ID
}

func (r *reaction) run(ctx context.Context, event, value string) (res reactionResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	c := r.compiled.Clone()
	if err := c.Set("__event__", event); err != nil {
		return res, err
	}
	if err := c.Set("__value__", value); err != nil {
		return res, err
	}
	if err := c.RunContext(ctx); err != nil {
		return res, fmt.Errorf("%w: %w", ErrScript, err)
	}
	return decodeResult(c.Get("__result__").Value())
}

func decodeResult(v any) (reactionResult, error) {
	var res reactionResult
	switch v := v.(type) {
	case nil:
		return res, nil
	case string:
		res.value = &v
		return res, nil
	case error:
		return res, v
	case map[string]any:
		if s, ok := v["value"].(string); ok {
			res.value = &s
		}
		switch inv := v["invalid"].(type) {
		case string:
			res.invalid = &inv
		case bool:
			msg := ""
			if inv {
				msg = msgCustom
			}
			res.invalid = &msg
		}
		if s, ok := v["addClass"].(string); ok {
			res.addClass = strings.TrimSpace(s)
		}
		switch aria := v["ariaInvalid"].(type) {
		case string:
			res.ariaInvalid = &aria
		case bool:
			s := fmt.Sprint(aria)
			res.ariaInvalid = &s
		}
		if s, ok := v["alert"].(string); ok {
			res.alert = s
		}
		return res, nil
	}
	return res, fmt.Errorf("react returned %T, want string or map", v)
}
