// Package symbols is the domain-wide name registry (C2): built-in
// primitives plus every user-declared type, entity, behavior, enum,
// policy, and view, keyed by name for the resolver (C5) and the
// exhaustiveness/consistency passes (C7, C8).
package symbols

import (
	"fmt"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/config"
)

// DeclKind classifies what a Symbol names.
type DeclKind int

const (
	DeclBuiltinType DeclKind = iota
	DeclType
	DeclEntity
	DeclBehavior
	DeclEnumVariant
	DeclPolicy
	DeclView
	DeclScenario
)

func (k DeclKind) String() string {
	switch k {
	case DeclBuiltinType:
		return "builtin type"
	case DeclType:
		return "type"
	case DeclEntity:
		return "entity"
	case DeclBehavior:
		return "behavior"
	case DeclEnumVariant:
		return "enum variant"
	case DeclPolicy:
		return "policy"
	case DeclView:
		return "view"
	case DeclScenario:
		return "scenario"
	default:
		return "symbol"
	}
}

// Symbol is one named declaration in the domain.
type Symbol struct {
	Name string
	Kind DeclKind
	// Node is nil for builtins; otherwise the declaring AST node.
	Node ast.Node
	// EnumVariants is populated when Kind==DeclType and the type's
	// definition is an ast.EnumType, so the exhaustiveness pass doesn't
	// need to re-walk the definition to find them.
	EnumVariants []string
}

// Span returns the symbol's declaration location, or a zero Span for
// builtins.
func (s *Symbol) Span() ast.Span {
	if s.Node == nil {
		return ast.Span{}
	}
	return s.Node.Span()
}

// Table is the flat, domain-scoped symbol registry. It is built once per
// analysis run by the resolver pass and read by every later pass.
type Table struct {
	entries map[string]*Symbol
	order   []string
}

// New returns a Table preloaded with the built-in primitive types.
func New() *Table {
	t := &Table{entries: make(map[string]*Symbol)}
	for _, name := range config.BuiltinPrimitiveNames {
		t.mustDeclare(&Symbol{Name: name, Kind: DeclBuiltinType})
	}
	return t
}

func (t *Table) mustDeclare(sym *Symbol) {
	if _, exists := t.entries[sym.Name]; exists {
		panic(fmt.Sprintf("symbols: builtin %q declared twice", sym.Name))
	}
	t.entries[sym.Name] = sym
	t.order = append(t.order, sym.Name)
}

// Declare registers sym. If a symbol of that name already exists, the
// prior symbol is returned unchanged and ok is false — the caller (the
// resolver) is responsible for turning that into a redeclaration
// diagnostic; Table itself never decides error policy.
func (t *Table) Declare(sym *Symbol) (prior *Symbol, ok bool) {
	if existing, exists := t.entries[sym.Name]; exists {
		return existing, false
	}
	t.entries[sym.Name] = sym
	t.order = append(t.order, sym.Name)
	return nil, true
}

// Lookup returns the symbol named name, if any.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.entries[name]
	return sym, ok
}

// Names returns every declared name in declaration order (builtins
// first), the universe the suggest package's did-you-mean search scans.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// ByKind returns every symbol of the given kind, in declaration order.
func (t *Table) ByKind(kind DeclKind) []*Symbol {
	var out []*Symbol
	for _, name := range t.order {
		if sym := t.entries[name]; sym.Kind == kind {
			out = append(out, sym)
		}
	}
	return out
}

// IsBuiltinPrimitive reports whether name is a preloaded primitive type.
func (t *Table) IsBuiltinPrimitive(name string) bool {
	sym, ok := t.entries[name]
	return ok && sym.Kind == DeclBuiltinType
}
