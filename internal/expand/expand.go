// Package expand implements the Expander: substituting variable
// references, including dotted property chains, in a string by consulting
// a store.Store. It is the one place dotted access ($x.prop) is resolved
// into the mangled flat names store.Store actually holds.
package expand

import (
	"strings"

	"opsh/internal/store"
)

// Expander binds variable expansion to a single store.Store.
type Expander struct {
	vars *store.Store
}

// New returns an Expander reading from vars.
func New(vars *store.Store) *Expander {
	return &Expander{vars: vars}
}

// Expand substitutes variable references in input and returns the result.
// There is no bounded-buffer truncation in this Go implementation — Go
// strings are not fixed-size buffers the way the C original's output
// parameter was — so ExpandBounded below exists for callers that want to
// preserve the "silently stop writing" contract verbatim; Expand itself
// never truncates.
func (e *Expander) Expand(input string) string {
	return e.ExpandBounded(input, -1)
}

// ExpandBounded is Expand with an output size limit; once the accumulated
// output would exceed maxLen bytes, expansion silently stops writing
// rather than raising an error. maxLen < 0 means unbounded.
func (e *Expander) ExpandBounded(input string, maxLen int) string {
	var out strings.Builder
	i := 0
	n := len(input)

	write := func(s string) bool {
		if maxLen >= 0 && out.Len()+len(s) > maxLen {
			remaining := maxLen - out.Len()
			if remaining > 0 {
				out.WriteString(s[:remaining])
			}
			return false
		}
		out.WriteString(s)
		return true
	}

	for i < n {
		ch := input[i]

		if ch == '\\' && i+1 < n && input[i+1] == '$' {
			if !write("$") {
				return out.String()
			}
			i += 2
			continue
		}

		if ch != '$' {
			if !write(string(ch)) {
				return out.String()
			}
			i++
			continue
		}

		// ch == '$': parse a reference starting here.
		refStart := i
		name, consumed := e.parseName(input, i+1)
		if name == "" {
			// Empty name parse: emit the '$' (and any brace pair) literally.
			if !write(input[refStart : i+1+consumed]) {
				return out.String()
			}
			i = i + 1 + consumed
			continue
		}
		i += 1 + consumed

		chain := []string{name}
		for i < n && input[i] == '.' {
			propStart := i + 1
			prop, propConsumed, ok := e.parseProperty(input, propStart)
			if !ok {
				break
			}
			chain = append(chain, prop)
			i = propStart + propConsumed
		}

		mangled := strings.Join(chain, "_")
		if value, ok := e.vars.Get(mangled); ok {
			if !write(value) {
				return out.String()
			}
		}
		// Missing variable: silent, nothing appended.
	}
	return out.String()
}

// parseName parses a variable base name starting at pos (just after the
// '$'): either "{name}" (everything up to '}') or a run of alphanumerics
// and '_'. It returns the parsed name (without braces) and how many bytes
// of input (after the '$') were consumed, including braces.
func (e *Expander) parseName(input string, pos int) (string, int) {
	n := len(input)
	if pos < n && input[pos] == '{' {
		end := pos + 1
		for end < n && input[end] != '}' {
			end++
		}
		if end >= n {
			// Unterminated "{...": no valid name.
			return "", 0
		}
		name := input[pos+1 : end]
		return name, (end + 1) - pos
	}
	start := pos
	end := pos
	for end < n && isNameChar(input[end]) {
		end++
	}
	return input[start:end], end - pos
}

// parseProperty parses one ".PROP" segment's PROP, where PROP is either a
// literal alnum/_ run or a dynamic reference ($X / ${X}) whose value
// becomes the property name. pos is the byte right after
// the '.'. ok is false if there is no valid property here (e.g. a trailing
// lone '.'), in which case the chain stops and the '.' is left unconsumed
// for the caller (it will simply not be part of this reference).
func (e *Expander) parseProperty(input string, pos int) (string, int, bool) {
	n := len(input)
	if pos >= n {
		return "", 0, false
	}
	if input[pos] == '$' {
		dynName, consumed := e.parseName(input, pos+1)
		if dynName == "" {
			return "", 0, false
		}
		value, _ := e.vars.Get(dynName)
		return value, 1 + consumed, true
	}
	start := pos
	end := pos
	for end < n && isNameChar(input[end]) {
		end++
	}
	if end == start {
		return "", 0, false
	}
	return input[start:end], end - start, true
}

func isNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
