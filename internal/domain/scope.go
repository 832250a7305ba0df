// internal/domain/scope.go
package domain

import (
	"errors"
	"strings"
)

var (
	ErrScopeRequired = errors.New("scope is required")
	ErrUnknownScope  = errors.New("unknown scope")
)

// Scope selects which microcycles an edit, add or delete reaches. There is no
// default: the zero Scope is invalid and callers must choose explicitly.
type Scope string

const (
	// ScopeThisOnly touches the origin microcycle only.
	ScopeThisOnly Scope = "this-only"
	// ScopeFromHereForward touches the origin and every later microcycle.
	// Existing overrides in range are kept.
	ScopeFromHereForward Scope = "from-here-forward"
	// ScopeNextOnly is for new exercises/sets: the origin plus the next microcycle.
	ScopeNextOnly Scope = "next-only"
	// ScopeFromHereForwardClearing is a forward edit that also clears the
	// field's overrides in range.
	ScopeFromHereForwardClearing Scope = "from-here-forward-clearing"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeThisOnly, ScopeFromHereForward, ScopeNextOnly, ScopeFromHereForwardClearing:
		return true
	}
	return false
}

// Forward reports whether the scope covers every later microcycle.
func (s Scope) Forward() bool {
	return s == ScopeFromHereForward || s == ScopeFromHereForwardClearing
}

// ParseScope validates a scope string.
func ParseScope(raw string) (Scope, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ErrScopeRequired
	}
	s := Scope(v)
	if !s.Valid() {
		return "", ErrUnknownScope
	}
	return s, nil
}
