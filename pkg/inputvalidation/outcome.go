package inputvalidation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/fieldprobe/fieldprobe/pkg/regexcache"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// errorClassRe matches class names pages commonly add to a refused field.
var errorClassRe = regexcache.MustGet(`(?i)(^|[-_])(error|invalid|danger|has-error|is-invalid)($|[-_])`)

// Outcome is what one probe observed.
type Outcome struct {
	Original          string   `json:"original"`
	Payload           string   `json:"payload"`
	Final             string   `json:"final"`
	Decoded           string   `json:"decoded"`
	Sanitized         bool     `json:"sanitized"`
	Encoded           bool     `json:"encoded"`
	Valid             bool     `json:"valid"`
	ValidationMessage string   `json:"validationMessage,omitempty"`
	ErrorMarkers      []string `json:"errorMarkers,omitempty"`
	Dialogs           []string `json:"dialogs,omitempty"`
	Change            string   `json:"change,omitempty"`
	Err               error    `json:"-"`
}

// Rejected reports whether the page refused the value, either through
// native constraint validation or by flagging the field as erroneous.
func (o Outcome) Rejected() bool {
	return !o.Valid || len(o.ErrorMarkers) > 0
}

// observe fills the outcome from the field state before and after the probe.
// A final value that differs from the payload only by percent-encoding is
// encoded, not sanitized.
func (o *Outcome) observe(before, after FieldState) {
	o.Final = after.Value
	o.Decoded = percentDecode(after.Value)
	o.Valid = after.Valid
	o.ValidationMessage = after.ValidationMessage
	o.Dialogs = after.Dialogs
	o.ErrorMarkers = errorMarkers(before, after)

	if o.Final != o.Payload {
		if o.Decoded == o.Payload {
			o.Encoded = true
		} else {
			o.Sanitized = true
		}
		o.Change = describeChange(o.Payload, o.Final)
	}
}

func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// errorMarkers lists error indicators present after the probe that were not
// there before it, so a field already in an error state does not count as a
// rejection of the payload.
func errorMarkers(before, after FieldState) []string {
	var markers []string
	if strings.EqualFold(after.AriaInvalid, "true") && !strings.EqualFold(before.AriaInvalid, "true") {
		markers = append(markers, "aria-invalid")
	}
	had := strings.Fields(before.ClassName)
	for _, class := range strings.Fields(after.ClassName) {
		if slices.Contains(had, class) || !errorClassRe.MatchString(class) {
			continue
		}
		markers = append(markers, "class:"+class)
	}
	return markers
}

// describeChange renders what the page did to the payload, such as
// `removed "<script>"`.
func describeChange(from, to string) string {
	dmp := diffmatchpatch.New()
	var parts []string
	for _, d := range dmp.DiffMain(from, to, false) {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			parts = append(parts, fmt.Sprintf("removed %q", d.Text))
		case diffmatchpatch.DiffInsert:
			parts = append(parts, fmt.Sprintf("added %q", d.Text))
		}
	}
	return strings.Join(parts, ", ")
}
