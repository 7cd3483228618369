// Package opspack loads operator-table extensions from YAML documents:
// additive sugar over operator.Registry.Register for scripts that would
// rather ship a declarative pack than a sequence of defoperator lines.
//
// This mirrors LoadOrCreateConfig's "unmarshal then validate" shape
// (see app/config.go) without the config package's filesystem/XDG
// plumbing: a pack is loaded from bytes the caller already has, since
// the kernel itself has no opinion about where packs live on disk.
package opspack

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"opsh/internal/kernelerr"
	"opsh/internal/operator"
)

// Entry is one YAML-sourced operator definition. Field names match the
// defoperator keyword vocabulary (lowercased) so a pack reads like the
// script form it replaces.
type Entry struct {
	Symbol     string `yaml:"symbol"`
	Type       string `yaml:"type"`
	Precedence int    `yaml:"precedence"`
	Assoc      string `yaml:"assoc"`
	Handler    string `yaml:"handler"`
}

// Pack is the top-level document shape: a mapping whose "operators" key
// holds the list of operator entries.
type Pack struct {
	Operators []Entry `yaml:"operators"`
}

// Parse unmarshals a YAML document into a Pack. It does not validate
// field values (that happens during Load, against the registry's own
// rules) — Parse only checks that the document is well-formed YAML.
func Parse(data []byte) (Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pack{}, kernelerr.RegistryError(kernelerr.MalformedDefOperator, "opspack: yaml.Unmarshal: %v", err)
	}
	return p, nil
}

// LoadResult reports, per entry, whether it was a fresh registration or a
// redefinition (prev non-nil), mirroring Registry.Register's own return
// shape so a caller can log exactly what defoperator-via-YAML would have
// logged line by line.
type LoadResult struct {
	Symbol string
	Prev   *operator.Definition
}

// Load parses data and registers every entry against registry, stopping
// at the first malformed entry. Entries before the failure are already
// registered — Load does not roll back partial packs, matching
// Registry.Register's own no-transaction behavior for a single
// defoperator line.
func Load(registry *operator.Registry, data []byte) ([]LoadResult, error) {
	pack, err := Parse(data)
	if err != nil {
		return nil, err
	}

	results := make([]LoadResult, 0, len(pack.Operators))
	for i, e := range pack.Operators {
		def, err := entryToDefinition(e)
		if err != nil {
			return results, fmt.Errorf("opspack: entry %d (%q): %w", i, e.Symbol, err)
		}
		prev, err := registry.Register(def)
		if err != nil {
			return results, fmt.Errorf("opspack: entry %d (%q): %w", i, e.Symbol, err)
		}
		results = append(results, LoadResult{Symbol: def.Symbol, Prev: prev})
	}
	return results, nil
}

func entryToDefinition(e Entry) (operator.Definition, error) {
	role, ok := operator.ParseRole(e.Type)
	if !ok {
		return operator.Definition{}, kernelerr.RegistryError(kernelerr.InvalidRole,
			"opspack: unknown type %q for symbol %q", e.Type, e.Symbol)
	}
	assoc := operator.Left
	if e.Assoc != "" {
		a, ok := operator.ParseAssociativity(e.Assoc)
		if !ok {
			return operator.Definition{}, kernelerr.RegistryError(kernelerr.InvalidAssoc,
				"opspack: unknown assoc %q for symbol %q", e.Assoc, e.Symbol)
		}
		assoc = a
	}
	return operator.Definition{
		Symbol:        e.Symbol,
		Role:          role,
		Precedence:    e.Precedence,
		Associativity: assoc,
		HandlerName:   e.Handler,
	}, nil
}
