package inputvalidation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fieldprobe/fieldprobe/pkg/regexcache"
)

// ReasonNotApplicable is the verdict reason when a category is not a
// meaningful target for a field.
const ReasonNotApplicable = "field unlikely to be a meaningful target for this category"

var (
	xssScriptRe  = regexcache.MustGet(`(?i)<\s*script`)
	xssProtoRe   = regexcache.MustGet(`(?i)javascript\s*:`)
	xssHandlerRe = regexcache.MustGet(`(?i)\bon[a-z]+\s*=`)
	htmlEntityRe = regexcache.MustGet(`(?i)&(lt|gt|quot|apos|amp|#[0-9]+|#x[0-9a-f]+);`)

	sqlOrRe      = regexcache.MustGet(`(?i)['"]\s*or\b`)
	sqlStackedRe = regexcache.MustGet(`(?i);\s*(drop|delete|insert|update|create|alter|truncate|exec|execute|select|grant|revoke|merge|replace)\b`)
	sqlUnionRe   = regexcache.MustGet(`(?i)\bunion\s+(all\s+)?select\b`)
	sqlCommentRe = regexcache.MustGet(`['"].*(--|#)|(--|#).*['"]`)
)

// disallowedChars are the characters a constrained field should not accept.
const disallowedChars = `<>'"&;()\`

// Verdict is the classification of one outcome for one category.
type Verdict struct {
	Vulnerable bool   `json:"vulnerable"`
	Applicable bool   `json:"applicable"`
	Reason     string `json:"reason"`
}

func notApplicable() Verdict {
	return Verdict{Reason: ReasonNotApplicable}
}

func safe(reason string) Verdict {
	return Verdict{Applicable: true, Reason: reason}
}

func vulnerable(reason string) Verdict {
	return Verdict{Vulnerable: true, Applicable: true, Reason: reason}
}

// Classify applies the heuristics of category to a probe outcome.
// Unknown categories are not applicable.
func Classify(category Category, fc FieldContext, o Outcome) Verdict {
	var v Verdict
	switch category {
	case CategoryXSS:
		v = classifyXSS(fc, o)
	case CategorySQLi:
		v = classifySQLi(fc, o)
	case CategorySpecialChars:
		v = classifySpecialChars(fc, o)
	default:
		return notApplicable()
	}
	if v.Applicable && len(o.Dialogs) > 0 {
		v.Reason += fmt.Sprintf("; page opened a JavaScript dialog (%s)", strings.Join(o.Dialogs, ", "))
	}
	return v
}

// rejection returns the reason the page refused or changed the value, or "".
func rejection(o Outcome) string {
	switch {
	case o.Rejected():
		if o.ValidationMessage != "" {
			return "input rejected by field validation: " + o.ValidationMessage
		}
		if len(o.ErrorMarkers) > 0 {
			return "input flagged by the page (" + strings.Join(o.ErrorMarkers, ", ") + ")"
		}
		return "input rejected by field validation"
	case o.Sanitized:
		if o.Change != "" {
			return "input was sanitized (" + o.Change + ")"
		}
		return "input was sanitized"
	}
	return ""
}

func classifyXSS(fc FieldContext, o Outcome) Verdict {
	if fc.AcceptsHTML {
		return notApplicable()
	}
	if r := rejection(o); r != "" {
		return safe(r)
	}
	if htmlEntityRe.MatchString(o.Final) {
		return safe("input was HTML-entity escaped")
	}

	value := o.Decoded
	switch {
	case xssScriptRe.MatchString(value):
		return vulnerable("unescaped <script> tag accepted")
	case xssProtoRe.MatchString(value):
		return vulnerable("javascript: protocol accepted")
	case xssHandlerRe.MatchString(value):
		return vulnerable("inline event handler accepted")
	}
	return safe("no executable markup survived")
}

func classifySQLi(fc FieldContext, o Outcome) Verdict {
	if !fc.IsDatabaseField {
		return notApplicable()
	}
	if quotesEscaped(o.Final) {
		return safe("quotes were escaped")
	}
	if r := rejection(o); r != "" {
		return safe(r)
	}

	value := o.Decoded
	switch {
	case sqlOrRe.MatchString(value):
		return vulnerable("authentication bypass pattern (quote followed by OR) accepted")
	case sqlStackedRe.MatchString(value):
		return vulnerable("stacked SQL command accepted")
	case sqlUnionRe.MatchString(value):
		return vulnerable("UNION SELECT accepted")
	case sqlCommentRe.MatchString(value):
		return vulnerable("quote with SQL comment marker accepted")
	}
	return safe("no injectable SQL syntax survived")
}

func quotesEscaped(v string) bool {
	return strings.Contains(v, "''") || strings.Contains(v, `\'`) || strings.Contains(v, `\"`)
}

func classifySpecialChars(fc FieldContext, o Outcome) Verdict {
	if fc.IsFreeText || fc.AcceptsHTML {
		return notApplicable()
	}
	if r := rejection(o); r != "" {
		return safe(r)
	}
	if fc.HasPattern() {
		return safe("field declares a pattern restriction")
	}
	if r, ok := firstDisallowed(o.Decoded); ok {
		return vulnerable(fmt.Sprintf("disallowed character %q accepted", r))
	}
	return safe("no disallowed characters survived")
}

func firstDisallowed(s string) (rune, bool) {
	for _, r := range s {
		if strings.ContainsRune(disallowedChars, r) || unicode.IsControl(r) {
			return r, true
		}
	}
	return 0, false
}
