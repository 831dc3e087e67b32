package inputvalidation

import (
	"context"
	"strings"
)

// Page is the capability the prober needs from a loaded document.
// Fields are addressed by their Index from EnumerateFields; an index that no
// longer resolves must yield an error wrapping ErrFieldGone.
type Page interface {
	// URL returns the address of the loaded document.
	URL() string

	// EnumerateFields returns every input that is not hidden plus every
	// textarea, in document order.
	EnumerateFields(ctx context.Context) ([]FieldElement, error)

	// ReadField returns the current value, validity and error-state
	// attributes of a field.
	ReadField(ctx context.Context, index int) (FieldState, error)

	// SetValue assigns the field's value without firing any event.
	SetValue(ctx context.Context, index int, value string) error

	// DispatchSyntheticEvents fires bubbling input, change and blur events,
	// then, if submit is set, a cancelable submit event on the field's form
	// whose default action is prevented.
	DispatchSyntheticEvents(ctx context.Context, index int, submit bool) error

	// RestoreField puts back the value, class list and aria-invalid
	// attribute captured in snapshot.
	RestoreField(ctx context.Context, index int, snapshot FieldState) error
}

// FieldElement is the declared shape of one candidate field.
type FieldElement struct {
	Index           int    `json:"index"`
	Tag             string `json:"tag"`
	Name            string `json:"name"`
	ID              string `json:"id"`
	Type            string `json:"type"`
	MaxLength       int    `json:"maxLength"` // <= 0 when not declared
	Pattern         string `json:"pattern"`
	Required        bool   `json:"required"`
	ContentEditable bool   `json:"contentEditable"`
	RichText        bool   `json:"richText"`
	InForm          bool   `json:"inForm"`
}

// DisplayName is the name shown in results: name, then id, then "unnamed".
func (e FieldElement) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	if e.ID != "" {
		return e.ID
	}
	return "unnamed"
}

// DisplayType is the declared type, "textarea" for text areas and "text"
// when nothing is declared.
func (e FieldElement) DisplayType() string {
	if strings.EqualFold(e.Tag, "textarea") {
		return "textarea"
	}
	if e.Type != "" {
		return strings.ToLower(e.Type)
	}
	return "text"
}

// FieldState is what can be observed of a field at one point in time.
type FieldState struct {
	Value             string   `json:"value"`
	Valid             bool     `json:"valid"`
	ValidationMessage string   `json:"validationMessage"`
	ClassName         string   `json:"className"`
	AriaInvalid       string   `json:"ariaInvalid"`
	Dialogs           []string `json:"dialogs"` // JavaScript dialogs opened since the last read
}
