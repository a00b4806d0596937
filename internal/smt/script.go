package smt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specverify/verifier/internal/ast"
)

// TaggedAssertion is one named conjunct of a query, carrying enough
// provenance to answer back through the source map (spec.md §6).
type TaggedAssertion struct {
	Tag       string
	Term      *Term
	Kind      string // "pre" | "post" | "inv" | "ref" | "neg_post"
	OwnerName string
	Index     int
	DSLSource string
	Location  ast.Span
}

// Tag builds the `<kind>_<Owner>_<index>` tag format spec.md §6
// specifies.
func Tag(kind, owner string, index int) string {
	return fmt.Sprintf("%s_%s_%d", kind, owner, index)
}

// SourceMapEntry is the resolved provenance of one assertion tag.
type SourceMapEntry struct {
	Tag       string
	Kind      string
	OwnerName string
	Index     int
	SMTLib    string
	DSLSource string
	Location  ast.Span
}

// SourceMap maps solver-assertion tags back to their DSL origin.
type SourceMap struct {
	entries map[string]SourceMapEntry
	order   []string
}

// NewSourceMap returns an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{entries: map[string]SourceMapEntry{}}
}

// Add records one tagged assertion's provenance.
func (m *SourceMap) Add(a TaggedAssertion) {
	if _, exists := m.entries[a.Tag]; !exists {
		m.order = append(m.order, a.Tag)
	}
	m.entries[a.Tag] = SourceMapEntry{
		Tag: a.Tag, Kind: a.Kind, OwnerName: a.OwnerName, Index: a.Index,
		SMTLib: a.Term.String(), DSLSource: a.DSLSource, Location: a.Location,
	}
}

// Resolve looks up a tag's provenance.
func (m *SourceMap) Resolve(tag string) (SourceMapEntry, bool) {
	e, ok := m.entries[tag]
	return e, ok
}

// ByKind returns every entry of the given kind, in insertion order.
func (m *SourceMap) ByKind(kind string) []SourceMapEntry {
	var out []SourceMapEntry
	for _, tag := range m.order {
		if e := m.entries[tag]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ByOwner returns every entry owned by ownerName, in insertion order.
func (m *SourceMap) ByOwner(ownerName string) []SourceMapEntry {
	var out []SourceMapEntry
	for _, tag := range m.order {
		if e := m.entries[tag]; e.OwnerName == ownerName {
			out = append(out, e)
		}
	}
	return out
}

// BuildScript renders assertions to an SMT-LIB 2 script and its
// accompanying source map, per spec.md §6: `(set-logic ALL)`,
// `(set-option :produce-unsat-cores true)`, one declare-const per free
// variable (sorted for determinism — spec.md §8 property 1), each
// assertion wrapped `(assert (! body :named tag))`, and a terminal
// `(check-sat)`.
func BuildScript(assertions []TaggedAssertion) (string, *SourceMap) {
	declared := map[string]SortExpr{}
	var names []string
	for _, a := range assertions {
		for _, d := range Declarations(a.Term) {
			if _, ok := declared[d.Name]; !ok {
				declared[d.Name] = d.Sort
				names = append(names, d.Name)
			}
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("(set-logic ALL)\n")
	b.WriteString("(set-option :produce-unsat-cores true)\n")
	for _, name := range names {
		fmt.Fprintf(&b, "(declare-const %s %s)\n", name, declared[name].String())
	}

	sm := NewSourceMap()
	for _, a := range assertions {
		fmt.Fprintf(&b, "(assert (! %s :named %s))\n", a.Term.String(), a.Tag)
		sm.Add(a)
	}
	b.WriteString("(check-sat)\n")
	return b.String(), sm
}
