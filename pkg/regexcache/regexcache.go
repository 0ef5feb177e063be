// Package regexcache provides a thread-safe cache for compiled regular expressions.
// Signature definitions repeat patterns across scan kinds and reloads, so each
// distinct pattern is compiled once per process.
//
// Usage:
//
//	re, err := regexcache.GetFold(`SQL syntax.*MySQL`)
//	if err != nil {
//	    // handle error
//	}
//	ok := re.MatchString(body)
package regexcache

import (
	"regexp"
	"sync"
)

// foldPrefix is the RE2 flag group for case-insensitive matching.
const foldPrefix = "(?i)"

// cache holds compiled regular expressions keyed by their effective pattern.
var cache sync.Map

// Get returns a compiled regexp for pattern, compiling it on first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	// LoadOrStore keeps the first instance when two goroutines race.
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// GetFold returns pattern compiled for case-insensitive matching.
// A pattern that already starts with (?i) is not prefixed twice.
func GetFold(pattern string) (*regexp.Regexp, error) {
	if len(pattern) >= len(foldPrefix) && pattern[:len(foldPrefix)] == foldPrefix {
		return Get(pattern)
	}
	return Get(foldPrefix + pattern)
}

// MustGet is like Get but panics if the pattern is invalid.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Clear removes all cached regular expressions. Used by tests.
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
