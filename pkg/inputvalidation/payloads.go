package inputvalidation

import "slices"

// CatalogVersion identifies the payload set. Bump it whenever a payload is
// added, removed or reworded, since reports are only comparable within a version.
const CatalogVersion = "1.1"

// Payload is one test vector.
type Payload struct {
	Category    Category `json:"category"`
	Value       string   `json:"payload"`
	Description string   `json:"description"`
}

var catalog = []Payload{
	{CategoryXSS, `<script>alert(1)</script>`, "Basic XSS"},
	{CategoryXSS, `"><script>alert(1)</script>`, "Attribute XSS"},
	{CategoryXSS, `javascript:alert(1)`, "Protocol XSS"},

	{CategorySQLi, `' OR '1'='1`, "Basic SQLi"},
	{CategorySQLi, `" OR "1"="1`, "Double Quote SQLi"},
	{CategorySQLi, `1; DROP TABLE users--`, "Command SQLi"},

	{CategorySpecialChars, `@#$%^&*()`, "Basic Special Chars"},
	{CategorySpecialChars, `§±!@£$%^&*()`, "Extended Special Chars"},
}

// Catalog returns every payload in probe order.
func Catalog() []Payload {
	return slices.Clone(catalog)
}

// PayloadsFor returns the payloads of one category in catalog order.
func PayloadsFor(c Category) []Payload {
	var out []Payload
	for _, p := range catalog {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// Plan returns the payloads of the given categories, in probe order
// regardless of the order categories were passed in. No categories means all.
func Plan(categories []Category) []Payload {
	if len(categories) == 0 {
		return Catalog()
	}
	var out []Payload
	for _, c := range categoryOrder {
		if slices.Contains(categories, c) {
			out = append(out, PayloadsFor(c)...)
		}
	}
	return out
}
