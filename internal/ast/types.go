package ast

// TypeExpr is the closed sum type of type references: Primitive,
// Reference, List, Map, Optional, Constrained, Struct, Union, Enum
// (spec.md §3).
type TypeExpr interface {
	Node
	typeExprNode()
}

// PrimitiveType names one of the built-in scalar types registered in the
// prelude scope of internal/symbols (String, Int, Decimal, Boolean, UUID,
// Timestamp, Duration, Bytes, ...).
type PrimitiveType struct {
	NodeSpan Span   `json:"-"`
	Name     string `json:"name"`
}

func (t *PrimitiveType) Span() Span      { return t.NodeSpan }
func (t *PrimitiveType) Kind() string    { return "PrimitiveType" }
func (t *PrimitiveType) typeExprNode()   {}

// ReferenceType names a user-declared type, entity, or enum by (possibly
// qualified) name; resolved against the symbol table in C5.
type ReferenceType struct {
	NodeSpan Span   `json:"-"`
	Name     string `json:"name"`
}

func (t *ReferenceType) Span() Span    { return t.NodeSpan }
func (t *ReferenceType) Kind() string  { return "ReferenceType" }
func (t *ReferenceType) typeExprNode() {}

// ListType is a homogeneous, ordered collection.
type ListType struct {
	NodeSpan Span     `json:"-"`
	Elem     TypeExpr `json:"elem"`
}

func (t *ListType) Span() Span    { return t.NodeSpan }
func (t *ListType) Kind() string  { return "ListType" }
func (t *ListType) typeExprNode() {}

// MapType is a homogeneous key/value collection.
type MapType struct {
	NodeSpan Span     `json:"-"`
	Key      TypeExpr `json:"key"`
	Value    TypeExpr `json:"value"`
}

func (t *MapType) Span() Span    { return t.NodeSpan }
func (t *MapType) Kind() string  { return "MapType" }
func (t *MapType) typeExprNode() {}

// OptionalType marks a type as possibly absent.
type OptionalType struct {
	NodeSpan Span     `json:"-"`
	Inner    TypeExpr `json:"inner"`
}

func (t *OptionalType) Span() Span    { return t.NodeSpan }
func (t *OptionalType) Kind() string  { return "OptionalType" }
func (t *OptionalType) typeExprNode() {}

// ConstrainedType refines a base type with boolean predicate expressions
// (e.g. a bounded integer, a regex-matched string). Predicates reference
// an implicit subject; the consistency pass (C8) evaluates numeric bound
// constraints for satisfiability (E0310).
type ConstrainedType struct {
	NodeSpan    Span         `json:"-"`
	Base        TypeExpr     `json:"base"`
	Constraints []Expression `json:"constraints,omitempty"`
}

func (t *ConstrainedType) Span() Span    { return t.NodeSpan }
func (t *ConstrainedType) Kind() string  { return "ConstrainedType" }
func (t *ConstrainedType) typeExprNode() {}

// StructType is an inline, anonymous record of fields (as opposed to a
// named Entity).
type StructType struct {
	NodeSpan Span     `json:"-"`
	Fields   []*Field `json:"fields,omitempty"`
}

func (t *StructType) Span() Span    { return t.NodeSpan }
func (t *StructType) Kind() string  { return "StructType" }
func (t *StructType) typeExprNode() {}

// UnionType is a tagged choice between alternative types.
type UnionType struct {
	NodeSpan Span       `json:"-"`
	Variants []TypeExpr `json:"variants,omitempty"`
}

func (t *UnionType) Span() Span    { return t.NodeSpan }
func (t *UnionType) Kind() string  { return "UnionType" }
func (t *UnionType) typeExprNode() {}

// EnumType is a closed set of named variants. Exhaustiveness (C7)
// requires every clause that switches over a value of this type to cover
// every entry in Variants (or include a wildcard).
type EnumType struct {
	NodeSpan Span     `json:"-"`
	Variants []string `json:"variants,omitempty"`
}

func (t *EnumType) Span() Span    { return t.NodeSpan }
func (t *EnumType) Kind() string  { return "EnumType" }
func (t *EnumType) typeExprNode() {}
