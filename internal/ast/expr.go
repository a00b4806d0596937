package ast

// Expression is the closed sum type of clause expressions: Identifier,
// QualifiedName, StringLiteral, NumberLiteral, BooleanLiteral,
// NullLiteral, DurationLiteral, RegexLiteral, Binary, Unary, Call,
// Member, Index, Quantifier, Conditional, Old, Result, Input, Lambda,
// ListExpr, MapExpr (spec.md §3).
type Expression interface {
	Node
	exprNode()
}

// Identifier is a bare name: an input field, a quantifier-bound variable,
// or (inside entity scope) an entity field.
type Identifier struct {
	NodeSpan Span   `json:"-"`
	Name     string `json:"name"`
}

func (e *Identifier) Span() Span   { return e.NodeSpan }
func (e *Identifier) Kind() string { return "Identifier" }
func (e *Identifier) exprNode()    {}

// QualifiedName is a dotted path, e.g. referencing an imported domain's
// member.
type QualifiedName struct {
	NodeSpan Span     `json:"-"`
	Parts    []string `json:"parts"`
}

func (e *QualifiedName) Span() Span   { return e.NodeSpan }
func (e *QualifiedName) Kind() string { return "QualifiedName" }
func (e *QualifiedName) exprNode()    {}

// StringLiteral is a quoted string constant.
type StringLiteral struct {
	NodeSpan Span   `json:"-"`
	Value    string `json:"value"`
}

func (e *StringLiteral) Span() Span   { return e.NodeSpan }
func (e *StringLiteral) Kind() string { return "StringLiteral" }
func (e *StringLiteral) exprNode()    {}

// NumberLiteral is an integer or decimal constant. IsFloat distinguishes
// "2" from "2.0" for the encoder's sort selection (C9).
type NumberLiteral struct {
	NodeSpan Span    `json:"-"`
	Value    float64 `json:"value"`
	IsFloat  bool    `json:"isFloat,omitempty"`
}

func (e *NumberLiteral) Span() Span   { return e.NodeSpan }
func (e *NumberLiteral) Kind() string { return "NumberLiteral" }
func (e *NumberLiteral) exprNode()    {}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	NodeSpan Span `json:"-"`
	Value    bool `json:"value"`
}

func (e *BooleanLiteral) Span() Span   { return e.NodeSpan }
func (e *BooleanLiteral) Kind() string { return "BooleanLiteral" }
func (e *BooleanLiteral) exprNode()    {}

// NullLiteral is the absent-value literal, distinct from an unresolved
// Optional.
type NullLiteral struct {
	NodeSpan Span `json:"-"`
}

func (e *NullLiteral) Span() Span   { return e.NodeSpan }
func (e *NullLiteral) Kind() string { return "NullLiteral" }
func (e *NullLiteral) exprNode()    {}

// DurationLiteral is a magnitude/unit pair, e.g. "30s", "5m".
type DurationLiteral struct {
	NodeSpan Span    `json:"-"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

func (e *DurationLiteral) Span() Span   { return e.NodeSpan }
func (e *DurationLiteral) Kind() string { return "DurationLiteral" }
func (e *DurationLiteral) exprNode()    {}

// RegexLiteral is a regular-expression pattern, used directly in
// constraints and in the closed secrecy-predicate matcher (C13).
type RegexLiteral struct {
	NodeSpan Span   `json:"-"`
	Pattern  string `json:"pattern"`
}

func (e *RegexLiteral) Span() Span   { return e.NodeSpan }
func (e *RegexLiteral) Kind() string { return "RegexLiteral" }
func (e *RegexLiteral) exprNode()    {}

// BinaryExpr is a two-operand operator application: comparison (==, !=,
// <, <=, >, >=), arithmetic (+, -, *, /, %), logical (&&, ||), membership
// (in), or implication (=>).
type BinaryExpr struct {
	NodeSpan Span       `json:"-"`
	Op       string     `json:"op"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func (e *BinaryExpr) Span() Span   { return e.NodeSpan }
func (e *BinaryExpr) Kind() string { return "BinaryExpr" }
func (e *BinaryExpr) exprNode()    {}

// UnaryExpr is a single-operand operator application (!, -).
type UnaryExpr struct {
	NodeSpan Span       `json:"-"`
	Op       string     `json:"op"`
	Operand  Expression `json:"operand"`
}

func (e *UnaryExpr) Span() Span   { return e.NodeSpan }
func (e *UnaryExpr) Kind() string { return "UnaryExpr" }
func (e *UnaryExpr) exprNode()    {}

// CallExpr applies a named function (built-in or declared) to arguments.
// The purity pass (C6) decides, by name alone, whether a call is pure,
// mutating, or non-deterministic.
type CallExpr struct {
	NodeSpan Span         `json:"-"`
	Callee   string       `json:"callee"`
	Args     []Expression `json:"args,omitempty"`
}

func (e *CallExpr) Span() Span   { return e.NodeSpan }
func (e *CallExpr) Kind() string { return "CallExpr" }
func (e *CallExpr) exprNode()    {}

// MemberExpr is field access: object.property.
type MemberExpr struct {
	NodeSpan Span       `json:"-"`
	Object   Expression `json:"object"`
	Property string     `json:"property"`
}

func (e *MemberExpr) Span() Span   { return e.NodeSpan }
func (e *MemberExpr) Kind() string { return "MemberExpr" }
func (e *MemberExpr) exprNode()    {}

// IndexExpr is collection indexing: object[index].
type IndexExpr struct {
	NodeSpan Span       `json:"-"`
	Object   Expression `json:"object"`
	Index    Expression `json:"index"`
}

func (e *IndexExpr) Span() Span   { return e.NodeSpan }
func (e *IndexExpr) Kind() string { return "IndexExpr" }
func (e *IndexExpr) exprNode()    {}

// QuantifierExpr is `forall`/`exists` over a collection-valued
// expression, binding Var in Predicate. The encoder (C9) expands small,
// statically-bounded collections and otherwise emits a native SMT-LIB
// quantifier.
type QuantifierExpr struct {
	NodeSpan   Span       `json:"-"`
	Kind_      string     `json:"kind"` // "forall" | "exists"
	Var        string     `json:"var"`
	Collection Expression `json:"collection"`
	Predicate  Expression `json:"predicate"`
}

func (e *QuantifierExpr) Span() Span   { return e.NodeSpan }
func (e *QuantifierExpr) Kind() string { return "QuantifierExpr" }
func (e *QuantifierExpr) exprNode()    {}

// ConditionalExpr is `cond ? then : else`.
type ConditionalExpr struct {
	NodeSpan Span       `json:"-"`
	Cond     Expression `json:"cond"`
	Then     Expression `json:"then"`
	Else     Expression `json:"else"`
}

func (e *ConditionalExpr) Span() Span   { return e.NodeSpan }
func (e *ConditionalExpr) Kind() string { return "ConditionalExpr" }
func (e *ConditionalExpr) exprNode()    {}

// OldExpr refers to the value of Inner as it was before the behavior ran
// (`old(...)`). Legal only inside postconditions; E0304/E0411 otherwise.
type OldExpr struct {
	NodeSpan Span       `json:"-"`
	Inner    Expression `json:"inner"`
}

func (e *OldExpr) Span() Span   { return e.NodeSpan }
func (e *OldExpr) Kind() string { return "OldExpr" }
func (e *OldExpr) exprNode()    {}

// ResultExpr refers to the behavior's return value, or one of its
// properties when Property is non-empty (`result.field`). Legal only
// inside postconditions; E0311/W0311/E0412 otherwise.
type ResultExpr struct {
	NodeSpan Span   `json:"-"`
	Property string `json:"property,omitempty"`
}

func (e *ResultExpr) Span() Span   { return e.NodeSpan }
func (e *ResultExpr) Kind() string { return "ResultExpr" }
func (e *ResultExpr) exprNode()    {}

// InputExpr refers to the behavior's input, or one of its fields when
// Property is non-empty (`input.field`).
type InputExpr struct {
	NodeSpan Span   `json:"-"`
	Property string `json:"property,omitempty"`
}

func (e *InputExpr) Span() Span   { return e.NodeSpan }
func (e *InputExpr) Kind() string { return "InputExpr" }
func (e *InputExpr) exprNode()    {}

// LambdaExpr is an inline predicate, used as a quantifier body or a
// higher-order argument to a built-in like `all`/`any`.
type LambdaExpr struct {
	NodeSpan Span       `json:"-"`
	Params   []string   `json:"params"`
	Body     Expression `json:"body"`
}

func (e *LambdaExpr) Span() Span   { return e.NodeSpan }
func (e *LambdaExpr) Kind() string { return "LambdaExpr" }
func (e *LambdaExpr) exprNode()    {}

// ListExpr is a list literal.
type ListExpr struct {
	NodeSpan Span         `json:"-"`
	Elements []Expression `json:"elements,omitempty"`
}

func (e *ListExpr) Span() Span   { return e.NodeSpan }
func (e *ListExpr) Kind() string { return "ListExpr" }
func (e *ListExpr) exprNode()    {}

// MapEntry is one key/value pair of a MapExpr literal.
type MapEntry struct {
	Key   Expression `json:"key"`
	Value Expression `json:"value"`
}

// MapExpr is a map literal.
type MapExpr struct {
	NodeSpan Span       `json:"-"`
	Entries  []MapEntry `json:"entries,omitempty"`
}

func (e *MapExpr) Span() Span   { return e.NodeSpan }
func (e *MapExpr) Kind() string { return "MapExpr" }
func (e *MapExpr) exprNode()    {}
