// Package store implements the scoped variable store: a key->string map
// with lexical shadowing, plus the array-element and dotted-property name
// mangling conventions that are part of the wire contract with
// script-level code.
//
// This generalizes the object.Environment{store, outer} chain pattern (see
// object/environment.go) from an implicit linked list of frames into an
// explicit ScopeStack addressed by monotonic scope_id, so that "leaving a
// scope frees exactly the variables bound there" is a property the store
// can assert directly rather than one that falls out of garbage
// collection.
package store

import (
	"strings"

	"opsh/internal/kernelerr"
)

const arrayIndexSeparator = "_ARRAYIDX_"
const propertySeparator = "_"

// GlobalScopeID is the scope id of the outermost, never-destroyed scope.
const GlobalScopeID = 0

// Variable is a single binding.
type Variable struct {
	Name           string
	Value          string
	IsArrayElement bool
	ScopeID        int
}

// scope is one frame of the ScopeStack.
type scope struct {
	id   int
	vars map[string]*Variable
}

// Store is the scoped variable store. The zero value is not usable;
// construct with New, which pushes the global scope (id 0) automatically.
type Store struct {
	scopes []*scope
	nextID int
}

// New returns a Store with only the global scope on its stack.
func New() *Store {
	s := &Store{nextID: 1}
	s.scopes = append(s.scopes, &scope{id: GlobalScopeID, vars: make(map[string]*Variable)})
	return s
}

// Enter pushes a new scope frame with a fresh, never-reused id and returns
// that id.
func (s *Store) Enter() int {
	id := s.nextID
	s.nextID++
	s.scopes = append(s.scopes, &scope{id: id, vars: make(map[string]*Variable)})
	return id
}

// Leave pops the current scope frame, freeing every variable bound there.
// The global scope (id 0) is never popped; calling Leave with only the
// global scope on the stack is a no-op — global variables are never
// destroyed on scope leave.
func (s *Store) Leave() {
	if len(s.scopes) <= 1 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// CurrentScopeID returns the id of the innermost scope.
func (s *Store) CurrentScopeID() int {
	return s.scopes[len(s.scopes)-1].id
}

// Depth returns the number of scope frames currently on the stack,
// including the global frame (so a fresh Store has Depth() == 1).
func (s *Store) Depth() int {
	return len(s.scopes)
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}

// Set writes into the current scope. If a variable with that name already
// exists in the current scope its value is replaced; otherwise a new entry
// is created. Names are trimmed of surrounding whitespace; an empty name
// fails with StoreError(InvalidName).
func (s *Store) Set(name, value string, isArrayElement bool) error {
	name = trimName(name)
	if name == "" {
		return kernelerr.StoreError(kernelerr.InvalidName, "variable name is empty")
	}
	cur := s.scopes[len(s.scopes)-1]
	cur.vars[name] = &Variable{Name: name, Value: value, IsArrayElement: isArrayElement, ScopeID: cur.id}
	return nil
}

// Get searches the scope stack from innermost outward and returns the
// first match (shadowing semantics).
func (s *Store) Get(name string) (string, bool) {
	name = trimName(name)
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].vars[name]; ok {
			return v.Value, true
		}
	}
	return "", false
}

// Resolve returns the scope id in which name is currently bound (the
// innermost scope that shadows it), or ok=false if it is unbound anywhere.
func (s *Store) Resolve(name string) (int, bool) {
	name = trimName(name)
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i].vars[name]; ok {
			return s.scopes[i].id, true
		}
	}
	return 0, false
}

// MangleArrayIndex builds the BASE_ARRAYIDX_INDEX name from a base name and
// an already-normalized index.
func MangleArrayIndex(base, index string) string {
	return base + arrayIndexSeparator + index
}

// MangleProperty joins a base name and one or more property segments with
// "_" (the dotted-property encoding).
func MangleProperty(base string, props ...string) string {
	parts := append([]string{base}, props...)
	return strings.Join(parts, propertySeparator)
}

// ExpandFunc expands variable references (including dotted chains) within
// a raw string, as implemented by package expand. Store takes it as a
// parameter rather than importing package expand directly, since expand
// itself depends on Store to resolve the names it expands — see
// DESIGN.md's internal/store entry.
type ExpandFunc func(raw string) string

// normalizeIndex applies the raw-index normalization rule: if surrounded
// by literal double quotes, unescape then expand; if starting with '$',
// expand; otherwise use verbatim.
func normalizeIndex(raw string, expand ExpandFunc) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		unescaped := unescapeQuoted(raw[1 : len(raw)-1])
		if expand != nil {
			return expand(unescaped)
		}
		return unescaped
	}
	if strings.HasPrefix(raw, "$") {
		if expand != nil {
			return expand(raw)
		}
		return raw
	}
	return raw
}

func unescapeQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// SetArrayElement normalizes rawIndex and delegates to Set under the
// mangled BASE_ARRAYIDX_INDEX name.
func (s *Store) SetArrayElement(base, rawIndex, value string, expand ExpandFunc) error {
	index := normalizeIndex(rawIndex, expand)
	return s.Set(MangleArrayIndex(base, index), value, true)
}

// GetArrayElement normalizes rawIndex and delegates to Get under the
// mangled BASE_ARRAYIDX_INDEX name.
func (s *Store) GetArrayElement(base, rawIndex string, expand ExpandFunc) (string, bool) {
	index := normalizeIndex(rawIndex, expand)
	return s.Get(MangleArrayIndex(base, index))
}
