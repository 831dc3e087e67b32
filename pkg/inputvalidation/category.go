package inputvalidation

import (
	"fmt"
	"slices"
	"strings"
)

// Category is a vulnerability class the prober looks for.
type Category string

const (
	CategoryXSS          Category = "xss"
	CategorySQLi         Category = "sqli"
	CategorySpecialChars Category = "special"
)

// categoryOrder is the fixed order categories are probed in.
var categoryOrder = []Category{CategoryXSS, CategorySQLi, CategorySpecialChars}

// Categories returns all categories in probe order.
func Categories() []Category {
	return slices.Clone(categoryOrder)
}

// IsValid returns true if c is a known category.
func (c Category) IsValid() bool {
	return slices.Contains(categoryOrder, c)
}

// DisplayName returns the human-readable name used in findings and reports.
func (c Category) DisplayName() string {
	switch c {
	case CategoryXSS:
		return "Cross-Site Scripting (XSS)"
	case CategorySQLi:
		return "SQL Injection"
	case CategorySpecialChars:
		return "Special Characters"
	default:
		return string(c)
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts the short name, a few common aliases, or the
// display name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xss", "cross-site scripting (xss)", "cross-site scripting":
		return CategoryXSS, nil
	case "sqli", "sql", "sql injection", "sql-injection":
		return CategorySQLi, nil
	case "special", "special-chars", "specialchars", "special characters":
		return CategorySpecialChars, nil
	}
	return "", fmt.Errorf("unknown category %q (available: xss, sqli, special)", s)
}

// ParseCategories parses a comma-separated list. The result is deduplicated
// and sorted into probe order; an empty list yields nil (all categories).
func ParseCategories(list string) ([]Category, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	want := make(map[Category]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		want[c] = true
	}
	var out []Category
	for _, c := range categoryOrder {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}
