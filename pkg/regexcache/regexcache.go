// Package regexcache provides a thread-safe cache for compiled regular expressions.
// Page-supplied patterns (the HTML pattern attribute) repeat across every probe
// of a field, so each one is compiled once per process.
//
// Usage:
//
//	re, err := regexcache.Get("pattern")
//	ok, err := regexcache.MatchWhole(field.Pattern, value)
package regexcache

import (
	"regexp"
	"sync"
)

// cache holds compiled regular expressions keyed by pattern string.
var cache sync.Map

// Get returns a compiled regexp for the given pattern.
// If the pattern was previously compiled, it returns the cached version.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	// LoadOrStore handles two goroutines compiling the same pattern.
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet returns a compiled regexp for the given pattern.
// It panics if the pattern is invalid.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// MatchWhole reports whether value matches pattern in its entirety, the way
// the HTML pattern attribute is applied (^(?:pattern)$).
func MatchWhole(pattern, value string) (bool, error) {
	re, err := Get(`^(?:` + pattern + `)$`)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// Clear removes all cached regular expressions.
// This is primarily useful for testing.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}

// Size returns the number of cached regular expressions.
func Size() int {
	count := 0
	cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
