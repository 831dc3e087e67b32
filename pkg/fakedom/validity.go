package fakedom

import (
	"net/url"
	"strings"

	"github.com/fieldprobe/fieldprobe/pkg/regexcache"
)

// Browser validation messages, as Chrome words them.
const (
	msgValueMissing = "Please fill out this field."
	msgTypeEmail    = "Please enter an email address."
	msgTypeURL      = "Please enter a URL."
	msgPattern      = "Please match the requested format."
	msgCustom       = "Invalid value."
)

// emailRe is the valid e-mail address production of the HTML standard.
var emailRe = regexcache.MustGet(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// numberRe is the valid floating-point number production of the HTML standard.
var numberRe = regexcache.MustGet(`^-?(?:[0-9]+(?:\.[0-9]+)?|\.[0-9]+)(?:[eE][-+]?[0-9]+)?$`)

// patternTypes are the input types the pattern attribute applies to.
var patternTypes = map[string]bool{
	"text": true, "search": true, "url": true, "tel": true, "email": true, "password": true,
}

// sanitizeValue applies the value sanitization algorithm of an input type.
func sanitizeValue(typ, v string) string {
	switch typ {
	case "text", "search", "tel", "password":
		return stripNewlines(v)
	case "email", "url":
		return strings.TrimSpace(stripNewlines(v))
	case "number":
		if numberRe.MatchString(v) {
			return v
		}
		return ""
	}
	return v
}

func stripNewlines(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// validity computes the native constraint validation state. Maxlength is
// not checked: browsers only flag values that exceed it through user edits,
// never through script assignment.
func (f *field) validity() (bool, string) {
	if f.barred {
		return true, ""
	}
	if f.custom != "" {
		return false, f.custom
	}
	typ := f.el.DisplayType()
	if f.el.Required && f.value == "" {
		return false, msgValueMissing
	}
	if f.value == "" {
		return true, ""
	}

	switch typ {
	case "email":
		if !emailRe.MatchString(f.value) {
			return false, msgTypeEmail
		}
	case "url":
		if u, err := url.Parse(f.value); err != nil || u.Scheme == "" {
			return false, msgTypeURL
		}
	}

	if f.el.Pattern != "" && patternTypes[typ] {
		ok, err := regexcache.MatchWhole(f.el.Pattern, f.value)
		// An invalid pattern is ignored, as browsers do.
		if err == nil && !ok {
			return false, msgPattern
		}
	}
	return true, ""
}
