package inputvalidation

import "strings"

// htmlHints mark a field as intentionally accepting markup when they appear
// anywhere in its name or id.
var htmlHints = []string{"html", "richtext", "editor", "content", "message", "description"}

// databaseFields are names that plausibly end up in a backend query.
// They must match the whole name or id.
var databaseFields = map[string]bool{
	"username": true, "user": true, "password": true, "pass": true, "pwd": true,
	"email": true, "mail": true, "search": true, "query": true, "q": true,
	"id": true, "name": true, "login": true, "account": true, "filter": true,
	"sort": true, "order": true, "number": true, "code": true, "key": true,
	"param": true, "value": true,
}

// FieldContext decides which categories are meaningful for a field.
type FieldContext struct {
	Name            string `json:"name"`
	ID              string `json:"id"`
	Type            string `json:"type"`
	IsTextArea      bool   `json:"isTextArea"`
	IsFreeText      bool   `json:"isFreeText"`
	AcceptsHTML     bool   `json:"acceptsHTML"`
	IsDatabaseField bool   `json:"isDatabaseField"`
	MaxLength       int    `json:"maxLength"`
	Pattern         string `json:"pattern"`
}

// HasPattern reports whether the field declares a pattern constraint.
func (c FieldContext) HasPattern() bool { return c.Pattern != "" }

// HasLengthLimit reports whether the field declares a maxlength.
func (c FieldContext) HasLengthLimit() bool { return c.MaxLength > 0 }

// ClassifyField derives the context of a field from its declared shape.
// It is pure; the runner calls it again for every probe.
func ClassifyField(el FieldElement) FieldContext {
	name := strings.ToLower(strings.TrimSpace(el.Name))
	id := strings.ToLower(strings.TrimSpace(el.ID))

	fc := FieldContext{
		Name:       name,
		ID:         id,
		Type:       el.DisplayType(),
		IsTextArea: strings.EqualFold(el.Tag, "textarea"),
		MaxLength:  el.MaxLength,
		Pattern:    el.Pattern,
	}
	fc.AcceptsHTML = el.ContentEditable || el.RichText || containsAny(name, htmlHints) || containsAny(id, htmlHints)
	fc.IsDatabaseField = databaseFields[name] || databaseFields[id]
	fc.IsFreeText = fc.IsTextArea || el.ContentEditable || el.RichText
	return fc
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
