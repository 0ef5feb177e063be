// Package signatures loads and indexes backend-error detection rules.
//
// A Store keeps rules grouped by backend name. Groups are kept in the
// order the definition source introduced them and rules keep their
// definition order inside a group. Match walks that order, so when two
// backends could both claim a body the earlier group always wins.
package signatures

import (
	"fmt"
	"regexp"

	"github.com/waymap/waymap/pkg/regexcache"
)

// Rule is one pattern attributed to a backend.
type Rule struct {
	Backend string
	Pattern *regexp.Regexp
}

// Group is the ordered rule list of a single backend.
type Group struct {
	Backend string
	Rules   []Rule
}

// Store is an ordered, read-only-after-load set of signature groups.
// It is safe for concurrent Match calls once loading is finished.
type Store struct {
	groups []Group
	index  map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

// Add appends pattern to backend's group, creating the group at the end
// of the load order on first sight. Patterns match case-insensitively.
func (s *Store) Add(backend, pattern string) error {
	if backend == "" {
		return fmt.Errorf("signature group without a backend name")
	}
	if pattern == "" {
		return fmt.Errorf("backend %q: empty pattern", backend)
	}

	re, err := regexcache.GetFold(pattern)
	if err != nil {
		return fmt.Errorf("backend %q: pattern %q: %w", backend, pattern, err)
	}

	i, ok := s.index[backend]
	if !ok {
		i = len(s.groups)
		s.index[backend] = i
		s.groups = append(s.groups, Group{Backend: backend})
	}
	s.groups[i].Rules = append(s.groups[i].Rules, Rule{Backend: backend, Pattern: re})
	return nil
}

// Match returns the first backend, in load order, with a rule matching body.
func (s *Store) Match(body string) (string, bool) {
	for _, g := range s.groups {
		for _, r := range g.Rules {
			if r.Pattern.MatchString(body) {
				return g.Backend, true
			}
		}
	}
	return "", false
}

// Backends returns backend names in load order.
func (s *Store) Backends() []string {
	names := make([]string, len(s.groups))
	for i, g := range s.groups {
		names[i] = g.Backend
	}
	return names
}

// Rules returns the rules of backend, or nil if it is unknown.
func (s *Store) Rules(backend string) []Rule {
	i, ok := s.index[backend]
	if !ok {
		return nil
	}
	return s.groups[i].Rules
}

// Len returns the total number of rules.
func (s *Store) Len() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.Rules)
	}
	return n
}
